package middleware

import (
	"net/http"
	"strings"

	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"

	"github.com/gin-gonic/gin"
)

/**
 * API访问认证中间件
 * @param {string} secret - server.secret, empty disables authentication
 * @param {...string} public - Paths answered without a token (e.g. /healthz)
 * @description
 * - 需要 `Authorization: Bearer <token>`，token由 utils.IssueToken 签发
 */
func AuthMiddleware(secret string, public ...string) gin.HandlerFunc {
	open := map[string]bool{}
	for _, p := range public {
		open[p] = true
	}
	return func(c *gin.Context) {
		if secret == "" || open[c.Request.URL.Path] {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &models.ErrorResponse{
				Code:    "auth.missing_token",
				Message: "missing bearer token",
			})
			return
		}
		sub, err := utils.VerifyToken(secret, token)
		if err != nil {
			logger.Warnf("Rejected request to %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, &models.ErrorResponse{
				Code:    "auth.invalid_token",
				Message: err.Error(),
			})
			return
		}
		c.Set("subject", sub)
		c.Next()
	}
}

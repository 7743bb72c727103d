package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"furnace/internal/models"
	"furnace/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/furnace/api/v1"

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Serialized access to the reconciler
 * @returns {*APIController} New API controller instance
 * @example
 * controller := controllers.NewAPIController(services.NewServer(rec, paths, ver))
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register environment-level API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Readiness probe and prometheus scrape endpoint
 *   - Environment status (optionally with config drift)
 *   - serve/stop/restart of the whole environment
 *   - Installed php runtimes
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(apiPrefix)
	api.GET("/status", a.Status)
	api.GET("/runtimes", a.ListRuntimes)
	api.POST("/serve", a.Serve)
	api.POST("/stop", a.Stop)
	api.POST("/restart", a.Restart)
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间、健康状态和已注册的recipe数量
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHealthz())
}

// @Summary 环境状态
// @Description 返回recipe、php运行时和web服务器的状态，diff=true时附带配置漂移
// @Tags System
// @Produce json
// @Param diff query bool false "Include config drift"
// @Success 200 {object} models.SystemStatus
// @Failure 500 {object} models.ErrorResponse
// @Router /furnace/api/v1/status [get]
func (a *APIController) Status(c *gin.Context) {
	withDiff, _ := strconv.ParseBool(c.DefaultQuery("diff", "false"))
	st, err := a.server.Status(c.Request.Context(), withDiff)
	if err != nil {
		respondError(c, "status.failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary 已安装的php运行时
// @Tags Runtimes
// @Produce json
// @Success 200 {array} models.Runtime
// @Failure 500 {object} models.ErrorResponse
// @Router /furnace/api/v1/runtimes [get]
func (a *APIController) ListRuntimes(c *gin.Context) {
	runtimes, err := a.server.Runtimes()
	if err != nil {
		respondError(c, "runtimes.list_failed", err)
		return
	}
	if runtimes == nil {
		runtimes = []models.Runtime{}
	}
	c.JSON(http.StatusOK, runtimes)
}

// @Summary 启动全部服务
// @Tags Environment
// @Produce json
// @Success 200 {object} services.Report
// @Failure 500 {object} services.Report
// @Router /furnace/api/v1/serve [post]
func (a *APIController) Serve(c *gin.Context) {
	respondReport(c, a.server.Serve(c.Request.Context()))
}

// @Summary 停止全部服务
// @Tags Environment
// @Produce json
// @Success 200 {object} services.Report
// @Failure 500 {object} services.Report
// @Router /furnace/api/v1/stop [post]
func (a *APIController) Stop(c *gin.Context) {
	respondReport(c, a.server.Stop(c.Request.Context()))
}

// @Summary 重启全部服务
// @Tags Environment
// @Produce json
// @Success 200 {object} services.Report
// @Failure 500 {object} services.Report
// @Router /furnace/api/v1/restart [post]
func (a *APIController) Restart(c *gin.Context) {
	respondReport(c, a.server.Restart(c.Request.Context()))
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrResourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code string, err error) {
	c.JSON(statusCode(err), &models.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

// 部分失败时仍返回完整报告
func respondReport(c *gin.Context, rep *services.Report) {
	if err := rep.Err(); err != nil {
		c.JSON(statusCode(err), rep)
		return
	}
	c.JSON(http.StatusOK, rep)
}

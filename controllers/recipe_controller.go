package controllers

import (
	"fmt"
	"net/http"

	"furnace/internal/models"
	"furnace/services"

	"github.com/gin-gonic/gin"
)

type RecipeController struct {
	server *services.Server
}

func NewRecipeController(server *services.Server) *RecipeController {
	return &RecipeController{
		server: server,
	}
}

/**
 * Register recipe API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Recipe management (list/get/cook/dispose)
 */
func (rc *RecipeController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/recipes", rc.ListRecipes)
	api.GET("/recipes/:name", rc.GetRecipe)
	api.POST("/recipes", rc.CookRecipe)
	api.DELETE("/recipes/:name", rc.DisposeRecipe)
}

/**
 * CookRequest is the body of POST /recipes
 * @property {string} dir - Absolute project directory
 */
type CookRequest struct {
	Dir        string `json:"dir" binding:"required"`
	Name       string `json:"name"`
	PHPVersion string `json:"php_version"`
	ServeWith  string `json:"serve_with" binding:"omitempty,oneof=nginx apache"`
	Site       string `json:"site"`
}

type CookResponse struct {
	Recipe *models.Recipe   `json:"recipe"`
	Report *services.Report `json:"report"`
}

// ListRecipes lists every registered recipe
//
//	@Summary		List recipes
//	@Tags			Recipes
//	@Produce		json
//	@Success		200	{array}		models.Recipe
//	@Failure		500	{object}	models.ErrorResponse
//	@Router			/furnace/api/v1/recipes [get]
func (rc *RecipeController) ListRecipes(c *gin.Context) {
	recipes, err := rc.server.Recipes()
	if err != nil {
		respondError(c, "recipe.list_failed", err)
		return
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns one recipe by name
//
//	@Summary		Get recipe
//	@Tags			Recipes
//	@Produce		json
//	@Param			name	path		string	true	"Recipe name"
//	@Success		200		{object}	models.Recipe
//	@Failure		404		{object}	models.ErrorResponse
//	@Router			/furnace/api/v1/recipes/{name} [get]
func (rc *RecipeController) GetRecipe(c *gin.Context) {
	name := c.Param("name")
	recipe, err := rc.server.Recipe(name)
	if err != nil {
		respondError(c, "recipe.load_failed", err)
		return
	}
	if recipe == nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:    "recipe.notexist",
			Message: fmt.Sprintf("recipe [%s] isn't exist", name),
		})
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// CookRecipe registers a project and applies it
//
//	@Summary		Cook recipe
//	@Tags			Recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CookRequest	true	"Project to register"
//	@Success		200		{object}	CookResponse
//	@Failure		400		{object}	models.ErrorResponse
//	@Router			/furnace/api/v1/recipes [post]
func (rc *RecipeController) CookRecipe(c *gin.Context) {
	var req CookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:    "recipe.invalid_request",
			Message: err.Error(),
		})
		return
	}
	recipe, rep := rc.server.Cook(c.Request.Context(), services.CookOptions{
		Dir:        req.Dir,
		Name:       req.Name,
		PHPVersion: req.PHPVersion,
		ServeWith:  models.BackendKind(req.ServeWith),
		Site:       req.Site,
	})
	code := http.StatusOK
	if err := rep.Err(); err != nil {
		code = statusCode(err)
	}
	c.JSON(code, &CookResponse{Recipe: recipe, Report: rep})
}

// DisposeRecipe removes a recipe and its rendered configs
//
//	@Summary		Dispose recipe
//	@Tags			Recipes
//	@Produce		json
//	@Param			name	path		string	true	"Recipe name"
//	@Success		200		{object}	services.Report
//	@Router			/furnace/api/v1/recipes/{name} [delete]
func (rc *RecipeController) DisposeRecipe(c *gin.Context) {
	respondReport(c, rc.server.Dispose(c.Request.Context(), c.Param("name")))
}

package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// CategoryHandler layers the tree endpoints over the shared lifecycle
// routes. Creation and editing go through the category service so parent
// references are validated and re-parenting cannot create a cycle.
type CategoryHandler struct {
	categoryService service.CategoryService
	lifecycle       *LifecycleHandler[model.Category]
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		lifecycle: NewLifecycleHandler(categoryService.Lifecycle(),
			"categories", "categories.read", "categories.write").DisableCreate(),
	}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/categories")
	{
		group.GET("/tree", middleware.RequirePermission("categories.read"), h.Tree)
		group.GET("/parent-candidates", middleware.RequirePermission("categories.read"), h.ParentCandidates)
		group.POST("", middleware.RequirePermission("categories.write"), h.Create)
		group.PUT("/:id", middleware.RequirePermission("categories.write"), h.Update)
	}

	h.lifecycle.RegisterRoutes(router)
}

// Tree returns the Active categories as a forest
// @Summary      Get the category tree
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TreeNode}
// @Router       /api/categories/tree [get]
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categoryService.Tree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tree))
}

// ParentCandidates lists categories eligible as a parent
// @Summary      List valid parent choices
// @Description  Excludes the edited category and its whole subtree so a cycle cannot be selected
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Param        excluding  query  string  false  "Category being edited"
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /api/categories/parent-candidates [get]
func (h *CategoryHandler) ParentCandidates(c *gin.Context) {
	candidates, err := h.categoryService.ParentCandidates(c.Request.Context(), c.Query("excluding"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, candidates))
}

// Create replaces the generic create so parent references are validated
// @Summary      Create a category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateCategoryRequest  true  "Category"
// @Success      201  {object}  response.Response{data=model.Category}
// @Router       /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.categoryService.Create(auditCtx(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// Update renames or re-parents a category
// @Summary      Update a category
// @Description  Rejects a parent inside the category's own subtree with 409
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Category ID"
// @Param        payload  body  service.UpdateCategoryRequest  true  "Changes"
// @Success      200  {object}  response.Response{data=model.Category}
// @Failure      409  {object}  response.Response
// @Router       /api/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.categoryService.Update(auditCtx(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

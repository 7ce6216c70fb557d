package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
}

func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles")
	roles.Use(middleware.RequirePermission("roles.manage"))
	{
		roles.GET("", h.ListRoles)
		roles.GET("/trash", h.ListTrashed)
		roles.GET("/:id", h.GetRole)
		roles.POST("", h.CreateRole)
		roles.PUT("/:id", h.UpdateRole)
		roles.DELETE("/:id", h.DeleteRole)
		roles.POST("/:id/restore", h.RestoreRole)
		roles.DELETE("/:id/force", h.HardDeleteRole)
		roles.PUT("/permissions", h.CommitMatrix)
	}

	perms := router.Group("/api/permissions")
	perms.Use(middleware.RequirePermission("roles.manage"))
	{
		perms.GET("/grouped", h.GroupedPermissions)
	}
}

// ListRoles returns all active roles with their permissions
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// ListTrashed returns one page of trashed roles
func (h *RoleHandler) ListTrashed(c *gin.Context) {
	params := pagination.Parse(c)
	items, totalPages, totalItems, err := h.roleService.Lifecycle().List(
		c.Request.Context(), params.Page, params.Limit,
		repository.ListFilter{Trashed: true, Search: c.Query("search")})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items:       items,
		CurrentPage: params.Page,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
	}))
}

// GetRole returns a single role by ID
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole creates a new custom role
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.CreateRole(auditCtx(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole updates a role's name and description
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.UpdateRole(auditCtx(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole moves a non-system role to the trash
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(auditCtx(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Role moved to trash"}))
}

// RestoreRole returns a trashed role to the active listing
func (h *RoleHandler) RestoreRole(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.roleService.Lifecycle().Restore(auditCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Restored"}))
}

// HardDeleteRole permanently removes a trashed role
func (h *RoleHandler) HardDeleteRole(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.roleService.Lifecycle().HardDelete(auditCtx(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Permanently deleted"}))
}

// GroupedPermissions returns all permissions partitioned by group
func (h *RoleHandler) GroupedPermissions(c *gin.Context) {
	grouped, err := h.roleService.GroupedPermissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, grouped))
}

// CommitMatrix replaces the permission sets of every role in the request.
// Role writes are not transactional across roles: the response enumerates
// the outcome for each role so the UI can retry just the failed ones.
// @Summary      Commit the role-permission matrix
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.MatrixCommitRequest  true  "Role to permission-id assignments"
// @Success      200  {object}  response.Response{data=[]service.MatrixOutcomeResponse}
// @Failure      502  {object}  response.Response{data=[]service.MatrixOutcomeResponse}
// @Router       /api/roles/permissions [put]
func (h *RoleHandler) CommitMatrix(c *gin.Context) {
	var req service.MatrixCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	outcomes, allOK, err := h.roleService.CommitMatrix(auditCtx(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusBadGateway
	}
	c.JSON(status, response.Success(status, outcomes))
}

package handler

import (
	"context"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LifecycleHandler serves the uniform list / trash-bin / restore / purge
// routes shared by every resource kind. Permission codes follow the
// "<path>.read" / "<path>.write" convention; restore and purge require
// trash.manage.
type LifecycleHandler[T model.Entity] struct {
	svc        *service.Lifecycle[T]
	path       string // route segment, e.g. "products"
	readPerm   string
	writePerm  string
	skipCreate bool
}

func NewLifecycleHandler[T model.Entity](svc *service.Lifecycle[T], path, readPerm, writePerm string) *LifecycleHandler[T] {
	return &LifecycleHandler[T]{svc: svc, path: path, readPerm: readPerm, writePerm: writePerm}
}

// DisableCreate drops the generic POST route. Kinds with their own
// validated create (categories) register it themselves.
func (h *LifecycleHandler[T]) DisableCreate() *LifecycleHandler[T] {
	h.skipCreate = true
	return h
}

// RegisterRoutes binds the lifecycle endpoints for this kind
func (h *LifecycleHandler[T]) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/" + h.path)
	{
		group.GET("", middleware.RequirePermission(h.readPerm), h.List)
		group.GET("/trash", middleware.RequirePermission("trash.manage"), h.ListTrash)
		group.GET("/:id", middleware.RequirePermission(h.readPerm), h.GetByID)
		if !h.skipCreate {
			group.POST("", middleware.RequirePermission(h.writePerm), h.Create)
		}
		group.DELETE("/:id", middleware.RequirePermission(h.writePerm), h.SoftDelete)
		group.POST("/:id/restore", middleware.RequirePermission("trash.manage"), h.Restore)
		group.DELETE("/:id/force", middleware.RequirePermission("trash.manage"), h.HardDelete)
	}
}

// List returns one page of Active records
// @Summary      List active records
// @Tags         lifecycle
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        search  query  string  false  "Search text"
// @Success      200  {object}  response.Response{data=response.Paginated}
func (h *LifecycleHandler[T]) List(c *gin.Context) {
	h.list(c, false)
}

// ListTrash returns one page of Trashed records
// @Summary      List trashed records
// @Tags         lifecycle
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=response.Paginated}
func (h *LifecycleHandler[T]) ListTrash(c *gin.Context) {
	h.list(c, true)
}

func (h *LifecycleHandler[T]) list(c *gin.Context, trashed bool) {
	params := pagination.Parse(c)
	filter := repository.ListFilter{
		Trashed: trashed,
		Search:  c.Query("search"),
	}

	items, totalPages, totalItems, err := h.svc.List(auditCtx(c), params.Page, params.Limit, filter)
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

// GetByID returns a single record, trashed or active
func (h *LifecycleHandler[T]) GetByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.svc.GetByID(auditCtx(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Create stores a new Active record
func (h *LifecycleHandler[T]) Create(c *gin.Context) {
	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.svc.Create(auditCtx(c), &item); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// SoftDelete moves a record to the trash bin. Repeating the call is a
// no-op success, so UI retries after dropped responses stay safe.
func (h *LifecycleHandler[T]) SoftDelete(c *gin.Context) {
	h.transition(c, h.svc.SoftDelete, "Moved to trash")
}

// Restore returns a trashed record to the active listing
func (h *LifecycleHandler[T]) Restore(c *gin.Context) {
	h.transition(c, h.svc.Restore, "Restored")
}

// HardDelete permanently removes a trashed record
func (h *LifecycleHandler[T]) HardDelete(c *gin.Context) {
	h.transition(c, h.svc.HardDelete, "Permanently deleted")
}

func (h *LifecycleHandler[T]) transition(c *gin.Context, op func(context.Context, uuid.UUID) error, message string) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := op(auditCtx(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": message}))
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"backend/internal/service"
	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps service error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrCycleDetected):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidState):
		return http.StatusConflict
	case apperror.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// parseID reads and validates the :id path parameter.
func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id '%s'", apperror.ErrInvalidArgument, c.Param("id"))
	}
	return id, nil
}

// auditCtx tags the request context with the authenticated admin's id so
// transitions land in the audit trail with an actor.
func auditCtx(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if userID, ok := c.Get("userID"); ok {
		if raw, ok := userID.(string); ok {
			ctx = service.WithAuditUser(ctx, raw)
		}
	}
	return ctx
}

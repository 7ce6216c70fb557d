package service

import (
	"context"
	"encoding/json"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"
	"backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Action       string `json:"action"`
	ResourceKind string `json:"resource_kind"`
	ResourceID   string `json:"resource_id"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
}

// AuditService records lifecycle transitions and serves the activity
// history to the admin console. Recording is best-effort: a failed insert
// is logged, never surfaced, so it cannot fail the transition it follows.
type AuditService interface {
	TransitionRecorder
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *gorm.DB, log *logger.Logger) AuditService {
	return &auditService{db: db, log: log}
}

// RecordTransition persists one lifecycle transition to the audit trail.
func (s *auditService) RecordTransition(ctx context.Context, event LifecycleEvent) {
	var userID *uuid.UUID
	if raw, ok := ctx.Value(auditUserKey).(string); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			userID = &parsed
		}
	}

	details, _ := json.Marshal(map[string]string{
		"kind":   string(event.Kind),
		"action": event.Action,
	})

	entry := model.AuditLog{
		UserID:       userID,
		Action:       event.Action,
		ResourceKind: string(event.Kind),
		ResourceID:   event.ID.String(),
		Details:      string(details),
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil && s.log != nil {
		s.log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("failed to record audit entry")
	}
}

// GetAuditLogs retrieves paginated records with Users pre-loaded
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	var logs []model.AuditLog
	var total int64

	if err := s.db.WithContext(ctx).Model(&model.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, apperror.Transport(err)
	}

	offset := (page - 1) * limit
	if err := s.db.WithContext(ctx).Preload("User").Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, apperror.Transport(err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:           l.ID.String(),
			UserID:       userID,
			Username:     username,
			Action:       l.Action,
			ResourceKind: l.ResourceKind,
			ResourceID:   l.ResourceID,
			Details:      l.Details,
			CreatedAt:    l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

type auditContextKey string

// auditUserKey carries the acting admin's id through context into the
// audit trail.
const auditUserKey auditContextKey = "audit_user_id"

// WithAuditUser tags ctx with the acting user's id.
func WithAuditUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, auditUserKey, userID)
}

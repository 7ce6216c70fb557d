package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/logger"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LifecycleEvent describes a completed transition, for broadcast to
// connected admin sessions and for the audit trail.
type LifecycleEvent struct {
	Kind   model.Kind `json:"kind"`
	ID     uuid.UUID  `json:"id"`
	Action string     `json:"action"`
}

// Notifier pushes lifecycle events to connected admin clients.
type Notifier interface {
	Publish(event LifecycleEvent)
}

// TransitionRecorder persists lifecycle transitions to the audit trail.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, event LifecycleEvent)
}

// Lifecycle applies the Active/Trashed/Purged state machine for one
// resource kind. It validates transitions locally before touching the
// gateway and never retries: gateway failures surface as TransportError.
// There is no version token — concurrent transitions on the same id are
// last-writer-wins, an accepted limitation.
type Lifecycle[T model.Entity] struct {
	kind     model.Kind
	col      repository.Collection[T]
	notifier Notifier
	recorder TransitionRecorder
	log      *logger.Logger

	// HardDeleteGuard, when set, runs after the Trashed check and may veto
	// the purge (the category service forbids purging a category that
	// still has children).
	HardDeleteGuard func(ctx context.Context, id uuid.UUID) error
}

// NewLifecycle builds a lifecycle manager for one kind. notifier and
// recorder may be nil.
func NewLifecycle[T model.Entity](kind model.Kind, col repository.Collection[T], notifier Notifier, recorder TransitionRecorder, log *logger.Logger) *Lifecycle[T] {
	return &Lifecycle[T]{
		kind:     kind,
		col:      col,
		notifier: notifier,
		recorder: recorder,
		log:      log,
	}
}

// Kind returns the resource kind this manager is bound to.
func (s *Lifecycle[T]) Kind() model.Kind { return s.kind }

// List returns one page of the Active or Trashed view plus paging totals.
func (s *Lifecycle[T]) List(ctx context.Context, page, pageSize int, filter repository.ListFilter) ([]T, int, int64, error) {
	if page < 1 || pageSize < 1 {
		return nil, 0, 0, fmt.Errorf("%w: page and page size must be >= 1", apperror.ErrInvalidArgument)
	}

	items, total, err := s.col.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, 0, 0, apperror.Transport(err)
	}

	return items, pagination.TotalPages(total, pageSize), total, nil
}

// GetByID returns the item, trashed or not. Unknown and purged ids are
// indistinguishable: both are ErrNotFound.
func (s *Lifecycle[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.fetch(ctx, id)
}

// Create stores a new Active item.
func (s *Lifecycle[T]) Create(ctx context.Context, item *T) error {
	if err := s.col.Create(ctx, item); err != nil {
		return apperror.Transport(err)
	}
	s.emit(ctx, (*item).GetID(), model.ActionCreate)
	return nil
}

// Update persists domain-field changes. Trashed items must be restored
// before editing.
func (s *Lifecycle[T]) Update(ctx context.Context, item *T) error {
	current, err := s.fetch(ctx, (*item).GetID())
	if err != nil {
		return err
	}
	if (*current).Trashed() {
		return fmt.Errorf("%w: cannot edit a trashed %s", apperror.ErrInvalidState, s.kind)
	}
	if err := s.col.Update(ctx, item); err != nil {
		return apperror.Transport(err)
	}
	s.emit(ctx, (*item).GetID(), model.ActionUpdate)
	return nil
}

// SoftDelete transitions Active -> Trashed. Idempotent: the admin UI
// retries after dropped responses, so a second call is a no-op success.
func (s *Lifecycle[T]) SoftDelete(ctx context.Context, id uuid.UUID) error {
	item, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if (*item).Trashed() {
		return nil
	}

	if err := s.col.SoftDelete(ctx, id); err != nil {
		return apperror.Transport(err)
	}
	s.emit(ctx, id, model.ActionSoftDelete)
	return nil
}

// Restore transitions Trashed -> Active. A no-op success on Active items.
func (s *Lifecycle[T]) Restore(ctx context.Context, id uuid.UUID) error {
	item, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !(*item).Trashed() {
		return nil
	}

	if err := s.col.Restore(ctx, id); err != nil {
		return apperror.Transport(err)
	}
	s.emit(ctx, id, model.ActionRestore)
	return nil
}

// HardDelete purges a Trashed item permanently. Active items are rejected:
// the trash bin is the only path to a purge.
func (s *Lifecycle[T]) HardDelete(ctx context.Context, id uuid.UUID) error {
	item, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !(*item).Trashed() {
		return fmt.Errorf("%w: %s %s is not in the trash", apperror.ErrInvalidState, s.kind, id)
	}

	if s.HardDeleteGuard != nil {
		if err := s.HardDeleteGuard(ctx, id); err != nil {
			return err
		}
	}

	if err := s.col.HardDelete(ctx, id); err != nil {
		return apperror.Transport(err)
	}
	s.emit(ctx, id, model.ActionHardDelete)
	return nil
}

func (s *Lifecycle[T]) fetch(ctx context.Context, id uuid.UUID) (*T, error) {
	item, err := s.col.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %s", apperror.ErrNotFound, s.kind, id)
		}
		return nil, apperror.Transport(err)
	}
	return item, nil
}

func (s *Lifecycle[T]) emit(ctx context.Context, id uuid.UUID, action string) {
	event := LifecycleEvent{Kind: s.kind, ID: id, Action: action}
	if s.log != nil {
		s.log.Debug().Str("kind", string(s.kind)).Str("id", id.String()).Str("action", action).Msg("lifecycle transition")
	}
	if s.recorder != nil {
		s.recorder.RecordTransition(ctx, event)
	}
	if s.notifier != nil {
		s.notifier.Publish(event)
	}
}

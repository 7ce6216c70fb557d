package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter selects which lifecycle view a listing returns and carries
// kind-specific filtering through opaquely.
type ListFilter struct {
	Trashed bool           // false: Active view, true: trash-bin view
	Search  string         // substring match on the collection's search column
	Where   map[string]any // kind-specific equality clauses, passed through as-is
}

// Collection is the Persistence Gateway contract for one resource kind.
// FindByID is unscoped: Trashed rows are still retrievable (the trash bin
// shows them); a purged row yields gorm.ErrRecordNotFound.
type Collection[T model.Entity] interface {
	List(ctx context.Context, page, limit int, filter ListFilter) ([]T, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type gormCollection[T model.Entity] struct {
	db           *gorm.DB
	searchColumn string
}

// NewCollection returns a GORM-backed Collection for T. searchColumn is the
// column matched by ListFilter.Search (empty disables search).
func NewCollection[T model.Entity](db *gorm.DB, searchColumn string) Collection[T] {
	return &gormCollection[T]{db: db, searchColumn: searchColumn}
}

func (r *gormCollection[T]) List(ctx context.Context, page, limit int, filter ListFilter) ([]T, int64, error) {
	var items []T
	var total int64

	db := GetDB(ctx, r.db).Model(new(T))
	if filter.Trashed {
		db = db.Unscoped().Where("deleted_at IS NOT NULL")
	}
	if filter.Search != "" && r.searchColumn != "" {
		db = db.Where(r.searchColumn+" ILIKE ?", "%"+filter.Search+"%")
	}
	for col, val := range filter.Where {
		db = db.Where(col+" = ?", val)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *gormCollection[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	if err := GetDB(ctx, r.db).Unscoped().First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormCollection[T]) Create(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *gormCollection[T]) Update(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Save(item).Error
}

// SoftDelete marks the row Trashed. updated_at is written in the same
// statement so every transition bumps it.
func (r *gormCollection[T]) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return GetDB(ctx, r.db).Model(new(T)).Where("id = ?", id).
		Updates(map[string]any{"deleted_at": now, "updated_at": now}).Error
}

// Restore clears the Trashed marker.
func (r *gormCollection[T]) Restore(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Unscoped().Model(new(T)).Where("id = ?", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now()}).Error
}

// HardDelete removes the row permanently.
func (r *gormCollection[T]) HardDelete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Unscoped().Where("id = ?", id).Delete(new(T)).Error
}

package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository extends the generic collection with the tree-specific
// queries the category service needs.
type CategoryRepository interface {
	Collection[model.Category]
	// ListActive returns every Active category, oldest first, for tree
	// building and parent-candidate computation.
	ListActive(ctx context.Context) ([]model.Category, error)
	// CountChildren counts rows referencing parentID, Active and Trashed
	// alike. Used by the hard-delete guard.
	CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error)
}

type categoryRepository struct {
	Collection[model.Category]
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{
		Collection: NewCollection[model.Category](db, "name"),
		db:         db,
	}
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := GetDB(ctx, r.db).Order("created_at ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Unscoped().Model(&model.Category{}).
		Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

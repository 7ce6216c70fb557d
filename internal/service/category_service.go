package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

type UpdateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// --- Interface ---

// CategoryService layers the tree rules over the generic lifecycle: only
// Active categories may be parents, re-parenting may not create a cycle,
// and a category with children cannot be purged.
type CategoryService interface {
	Lifecycle() *Lifecycle[model.Category]
	Create(ctx context.Context, req CreateCategoryRequest) (*model.Category, error)
	Update(ctx context.Context, id string, req UpdateCategoryRequest) (*model.Category, error)
	Tree(ctx context.Context) ([]*TreeNode, error)
	ParentCandidates(ctx context.Context, excluding string) ([]model.Category, error)
}

type categoryService struct {
	repo      repository.CategoryRepository
	lifecycle *Lifecycle[model.Category]
	log       *logger.Logger
}

func NewCategoryService(repo repository.CategoryRepository, notifier Notifier, recorder TransitionRecorder, log *logger.Logger) CategoryService {
	s := &categoryService{
		repo:      repo,
		lifecycle: NewLifecycle[model.Category](model.KindCategory, repo, notifier, recorder, log),
		log:       log,
	}
	s.lifecycle.HardDeleteGuard = s.guardHardDelete
	return s
}

// Lifecycle exposes the generic state machine for the category kind.
func (s *categoryService) Lifecycle() *Lifecycle[model.Category] {
	return s.lifecycle
}

func (s *categoryService) Create(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	parentID, err := s.resolveParent(ctx, req.ParentID, nil)
	if err != nil {
		return nil, err
	}

	category := model.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    parentID,
	}
	if err := s.lifecycle.Create(ctx, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *categoryService) Update(ctx context.Context, id string, req UpdateCategoryRequest) (*model.Category, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid category id", apperror.ErrInvalidArgument)
	}

	current, err := s.lifecycle.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	parentID, err := s.resolveParent(ctx, req.ParentID, &categoryID)
	if err != nil {
		return nil, err
	}

	current.Name = req.Name
	current.Description = req.Description
	current.ParentID = parentID

	if err := s.lifecycle.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Tree returns the Active categories as a forest.
func (s *categoryService) Tree(ctx context.Context) ([]*TreeNode, error) {
	categories, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	return BuildTree(categories), nil
}

// ParentCandidates lists the categories eligible to parent the one being
// edited. An empty excluding id means a new category is being created.
func (s *categoryService) ParentCandidates(ctx context.Context, excluding string) ([]model.Category, error) {
	categories, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}

	var excludingID *uuid.UUID
	if excluding != "" {
		parsed, err := uuid.Parse(excluding)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid category id", apperror.ErrInvalidArgument)
		}
		excludingID = &parsed
	}

	return CandidateParents(categories, excludingID)
}

// resolveParent validates a requested parent id: it must name an Active
// category, and when editing it must not sit inside the edited node's own
// subtree. The walk uses a seen-set so a corrupt chain cannot loop forever.
func (s *categoryService) resolveParent(ctx context.Context, rawParent *string, editing *uuid.UUID) (*uuid.UUID, error) {
	if rawParent == nil || *rawParent == "" {
		return nil, nil
	}

	parentID, err := uuid.Parse(*rawParent)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid parent id", apperror.ErrInvalidArgument)
	}
	if editing != nil && parentID == *editing {
		return nil, fmt.Errorf("%w: category cannot be its own parent", apperror.ErrCycleDetected)
	}

	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: parent category %s", apperror.ErrInvalidArgument, parentID)
		}
		return nil, apperror.Transport(err)
	}
	if parent.Trashed() {
		return nil, fmt.Errorf("%w: parent category %s is in the trash", apperror.ErrInvalidArgument, parentID)
	}

	if editing != nil {
		if err := s.checkNoCycle(ctx, *editing, parentID); err != nil {
			return nil, err
		}
	}

	return &parentID, nil
}

// checkNoCycle walks from newParent upward through parent links. Hitting
// the edited node means the requested parent lives in its subtree. The
// walk reads each row unscoped: a Trashed intermediate still links its
// parent and child, so skipping it would let a cycle into the stored
// chain that surfaces on restore.
func (s *categoryService) checkNoCycle(ctx context.Context, editing, newParent uuid.UUID) error {
	seen := make(map[uuid.UUID]bool)
	current := newParent
	for {
		if current == editing {
			return fmt.Errorf("%w: %s is a descendant of %s", apperror.ErrCycleDetected, newParent, editing)
		}
		if seen[current] {
			return fmt.Errorf("%w: parent chain of %s loops", apperror.ErrCycleDetected, newParent)
		}
		seen[current] = true

		node, err := s.repo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// purged parent: the chain ends here
				return nil
			}
			return apperror.Transport(err)
		}
		if node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
}

// guardHardDelete forbids purging a category that still has child rows,
// Active or Trashed. Purging would silently orphan them.
func (s *categoryService) guardHardDelete(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return apperror.Transport(err)
	}
	if count > 0 {
		return fmt.Errorf("%w: category %s still has %d child categories", apperror.ErrInvalidState, id, count)
	}
	return nil
}

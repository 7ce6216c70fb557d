package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeCategoryRepo is an in-memory CategoryRepository preserving insertion
// order, matching the created_at ordering of the real one.
type fakeCategoryRepo struct {
	mu    sync.Mutex
	order []uuid.UUID
	items map[uuid.UUID]model.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{items: make(map[uuid.UUID]model.Category)}
}

func (f *fakeCategoryRepo) List(ctx context.Context, page, limit int, filter repository.ListFilter) ([]model.Category, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]model.Category, 0, len(f.order))
	for _, id := range f.order {
		item := f.items[id]
		if item.Trashed() == filter.Trashed {
			matched = append(matched, item)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (f *fakeCategoryRepo) Create(ctx context.Context, item *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	f.order = append(f.order, item.ID)
	f.items[item.ID] = *item
	return nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, item *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.UpdatedAt = time.Now()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeCategoryRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	item.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	f.items[id] = item
	return nil
}

func (f *fakeCategoryRepo) Restore(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[id]
	item.DeletedAt = gorm.DeletedAt{}
	f.items[id] = item
	return nil
}

func (f *fakeCategoryRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	items, _, err := f.List(ctx, 1, len(f.order)+1, repository.ListFilter{})
	return items, err
}

func (f *fakeCategoryRepo) CountChildren(ctx context.Context, parentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, item := range f.items {
		if item.ParentID != nil && *item.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func newCategoryFixture(t *testing.T) (CategoryService, *fakeCategoryRepo) {
	t.Helper()
	repo := newFakeCategoryRepo()
	return NewCategoryService(repo, nil, nil, nil), repo
}

func mustCreateCategory(t *testing.T, svc CategoryService, name string, parentID *uuid.UUID) *model.Category {
	t.Helper()
	req := CreateCategoryRequest{Name: name}
	if parentID != nil {
		s := parentID.String()
		req.ParentID = &s
	}
	cat, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return cat
}

func TestCategoryCreateWithParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	root := mustCreateCategory(t, svc, "Electronics", nil)
	child := mustCreateCategory(t, svc, "Phones", &root.ID)

	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)
}

func TestCategoryCreateRejectsUnknownParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	unknown := uuid.NewString()
	_, err := svc.Create(context.Background(), CreateCategoryRequest{Name: "X", ParentID: &unknown})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestCategoryCreateRejectsTrashedParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)
	ctx := context.Background()

	root := mustCreateCategory(t, svc, "Electronics", nil)
	require.NoError(t, svc.Lifecycle().SoftDelete(ctx, root.ID))

	id := root.ID.String()
	_, err := svc.Create(ctx, CreateCategoryRequest{Name: "Phones", ParentID: &id})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestCategoryUpdateRejectsSelfParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	cat := mustCreateCategory(t, svc, "Electronics", nil)
	id := cat.ID.String()

	_, err := svc.Update(context.Background(), id, UpdateCategoryRequest{Name: "Electronics", ParentID: &id})
	assert.ErrorIs(t, err, apperror.ErrCycleDetected)
}

func TestCategoryUpdateRejectsDescendantParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	c := mustCreateCategory(t, svc, "C", &b.ID)

	// moving A under its grandchild would loop the chain
	cID := c.ID.String()
	_, err := svc.Update(context.Background(), a.ID.String(), UpdateCategoryRequest{Name: "A", ParentID: &cID})
	assert.ErrorIs(t, err, apperror.ErrCycleDetected)
}

func TestCategoryUpdateRejectsDescendantParentThroughTrashedLink(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	c := mustCreateCategory(t, svc, "C", &b.ID)

	// trashing B hides it from the active listing but keeps its parent
	// link, so C is still a descendant of A
	require.NoError(t, svc.Lifecycle().SoftDelete(context.Background(), b.ID))

	cID := c.ID.String()
	_, err := svc.Update(context.Background(), a.ID.String(), UpdateCategoryRequest{Name: "A", ParentID: &cID})
	assert.ErrorIs(t, err, apperror.ErrCycleDetected)
}

func TestCategoryUpdateReparents(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	other := mustCreateCategory(t, svc, "Other", nil)

	otherID := other.ID.String()
	updated, err := svc.Update(context.Background(), b.ID.String(), UpdateCategoryRequest{Name: "B", ParentID: &otherID})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, other.ID, *updated.ParentID)
}

func TestCategoryUpdateClearsParent(t *testing.T) {
	svc, _ := newCategoryFixture(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)

	updated, err := svc.Update(context.Background(), b.ID.String(), UpdateCategoryRequest{Name: "B"})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)
}

func TestCategoryHardDeleteGuardedByChildren(t *testing.T) {
	svc, _ := newCategoryFixture(t)
	ctx := context.Background()

	parent := mustCreateCategory(t, svc, "Parent", nil)
	child := mustCreateCategory(t, svc, "Child", &parent.ID)

	require.NoError(t, svc.Lifecycle().SoftDelete(ctx, parent.ID))
	assert.ErrorIs(t, svc.Lifecycle().HardDelete(ctx, parent.ID), apperror.ErrInvalidState)

	// a trashed child still blocks the purge
	require.NoError(t, svc.Lifecycle().SoftDelete(ctx, child.ID))
	assert.ErrorIs(t, svc.Lifecycle().HardDelete(ctx, parent.ID), apperror.ErrInvalidState)

	require.NoError(t, svc.Lifecycle().HardDelete(ctx, child.ID))
	require.NoError(t, svc.Lifecycle().HardDelete(ctx, parent.ID))
}

func TestCategoryTreeOmitsTrashed(t *testing.T) {
	svc, _ := newCategoryFixture(t)
	ctx := context.Background()

	root := mustCreateCategory(t, svc, "Root", nil)
	child := mustCreateCategory(t, svc, "Child", &root.ID)
	require.NoError(t, svc.Lifecycle().SoftDelete(ctx, root.ID))

	roots, err := svc.Tree(ctx)
	require.NoError(t, err)

	// the child survives as a root once its parent leaves the Active view
	require.Len(t, roots, 1)
	assert.Equal(t, child.ID, roots[0].Category.ID)
}

func TestCategoryParentCandidates(t *testing.T) {
	svc, _ := newCategoryFixture(t)
	ctx := context.Background()

	a := mustCreateCategory(t, svc, "A", nil)
	mustCreateCategory(t, svc, "B", &a.ID)
	other := mustCreateCategory(t, svc, "Other", nil)

	candidates, err := svc.ParentCandidates(ctx, a.ID.String())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, other.ID, candidates[0].ID)

	_, err = svc.ParentCandidates(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

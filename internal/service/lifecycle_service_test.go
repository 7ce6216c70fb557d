package service

import (
	"context"
	"errors"
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

// fakeBrandCollection is an in-memory Collection[model.Brand]. forcedErr,
// when set, is returned by every call to simulate a gateway outage.
type fakeBrandCollection struct {
	mu        sync.Mutex
	items     map[uuid.UUID]model.Brand
	forcedErr error
}

func newFakeBrandCollection() *fakeBrandCollection {
	return &fakeBrandCollection{items: make(map[uuid.UUID]model.Brand)}
}

func (f *fakeBrandCollection) List(ctx context.Context, page, limit int, filter repository.ListFilter) ([]model.Brand, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, 0, f.forcedErr
	}

	matched := make([]model.Brand, 0, len(f.items))
	for _, item := range f.items {
		if item.Trashed() == filter.Trashed {
			matched = append(matched, item)
		}
	}
	total := int64(len(matched))

	start := (page - 1) * limit
	if start >= len(matched) {
		return []model.Brand{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeBrandCollection) FindByID(ctx context.Context, id uuid.UUID) (*model.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (f *fakeBrandCollection) Create(ctx context.Context, item *model.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	f.items[item.ID] = *item
	return nil
}

func (f *fakeBrandCollection) Update(ctx context.Context, item *model.Brand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	item.UpdatedAt = time.Now()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeBrandCollection) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	item := f.items[id]
	item.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	item.UpdatedAt = item.DeletedAt.Time
	f.items[id] = item
	return nil
}

func (f *fakeBrandCollection) Restore(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	item := f.items[id]
	item.DeletedAt = gorm.DeletedAt{}
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return nil
}

func (f *fakeBrandCollection) HardDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedErr != nil {
		return f.forcedErr
	}
	delete(f.items, id)
	return nil
}

// recordingSink captures emitted events as both notifier and recorder.
type recordingSink struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *recordingSink) Publish(event LifecycleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) RecordTransition(ctx context.Context, event LifecycleEvent) {
	r.Publish(event)
}

func (r *recordingSink) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func newBrandLifecycle() (*Lifecycle[model.Brand], *fakeBrandCollection, *recordingSink) {
	col := newFakeBrandCollection()
	sink := &recordingSink{}
	return NewLifecycle[model.Brand](model.KindBrand, col, sink, nil, nil), col, sink
}

func TestLifecycleSoftDeleteIsIdempotent(t *testing.T) {
	svc, _, sink := newBrandLifecycle()
	ctx := context.Background()

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))

	require.NoError(t, svc.SoftDelete(ctx, brand.ID))
	require.NoError(t, svc.SoftDelete(ctx, brand.ID), "second soft delete must succeed as a no-op")

	got, err := svc.GetByID(ctx, brand.ID)
	require.NoError(t, err)
	assert.True(t, got.Trashed())

	// only one SOFT_DELETE event despite two calls
	assert.Equal(t, []string{model.ActionCreate, model.ActionSoftDelete}, sink.actions())
}

func TestLifecycleRestoreRoundTripPreservesFields(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))
	require.NoError(t, svc.SoftDelete(ctx, brand.ID))
	require.NoError(t, svc.Restore(ctx, brand.ID))

	got, err := svc.GetByID(ctx, brand.ID)
	require.NoError(t, err)
	assert.False(t, got.Trashed())
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "acme", got.Slug)

	// restoring an Active item is a no-op success
	require.NoError(t, svc.Restore(ctx, brand.ID))
}

func TestLifecycleHardDeleteRequiresTrash(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))

	err := svc.HardDelete(ctx, brand.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	require.NoError(t, svc.SoftDelete(ctx, brand.ID))
	require.NoError(t, svc.HardDelete(ctx, brand.ID))

	_, err = svc.GetByID(ctx, brand.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLifecycleHardDeleteGuardVeto(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	veto := errors.New("still referenced")
	svc.HardDeleteGuard = func(ctx context.Context, id uuid.UUID) error { return veto }

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))
	require.NoError(t, svc.SoftDelete(ctx, brand.ID))

	assert.ErrorIs(t, svc.HardDelete(ctx, brand.ID), veto)

	// the item survives a vetoed purge
	got, err := svc.GetByID(ctx, brand.ID)
	require.NoError(t, err)
	assert.True(t, got.Trashed())
}

func TestLifecycleUpdateRejectsTrashed(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))
	require.NoError(t, svc.SoftDelete(ctx, brand.ID))

	brand.Name = "Renamed"
	assert.ErrorIs(t, svc.Update(ctx, &brand), apperror.ErrInvalidState)
}

func TestLifecycleUnknownIDIsNotFound(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, id), apperror.ErrNotFound)
	assert.ErrorIs(t, svc.Restore(ctx, id), apperror.ErrNotFound)
	assert.ErrorIs(t, svc.HardDelete(ctx, id), apperror.ErrNotFound)
}

func TestLifecycleListViews(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	active := model.Brand{Name: "Active", Slug: "active"}
	trashed := model.Brand{Name: "Trashed", Slug: "trashed"}
	require.NoError(t, svc.Create(ctx, &active))
	require.NoError(t, svc.Create(ctx, &trashed))
	require.NoError(t, svc.SoftDelete(ctx, trashed.ID))

	items, totalPages, total, err := svc.List(ctx, 1, 10, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, active.ID, items[0].ID)
	assert.Equal(t, 1, totalPages)
	assert.Equal(t, int64(1), total)

	items, _, _, err = svc.List(ctx, 1, 10, repository.ListFilter{Trashed: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, trashed.ID, items[0].ID)
}

func TestLifecycleListRejectsBadPaging(t *testing.T) {
	svc, _, _ := newBrandLifecycle()
	ctx := context.Background()

	_, _, _, err := svc.List(ctx, 0, 10, repository.ListFilter{})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, _, _, err = svc.List(ctx, 1, 0, repository.ListFilter{})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestLifecycleGatewayFailureIsTransport(t *testing.T) {
	svc, col, _ := newBrandLifecycle()
	ctx := context.Background()

	brand := model.Brand{Name: "Acme", Slug: "acme"}
	require.NoError(t, svc.Create(ctx, &brand))

	col.forcedErr = errors.New("connection refused")

	_, _, _, err := svc.List(ctx, 1, 10, repository.ListFilter{})
	assert.True(t, apperror.IsTransport(err))

	_, err = svc.GetByID(ctx, brand.ID)
	assert.True(t, apperror.IsTransport(err))
}

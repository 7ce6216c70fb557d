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

// fakeRoleRepository is an in-memory RoleRepository shared by the matrix
// and role service tests. ReplacePermissions records every write and fails
// for role ids listed in failing.
type fakeRoleRepository struct {
	mu          sync.Mutex
	roles       []model.Role
	permissions []model.Permission
	writes      map[uuid.UUID][]uuid.UUID
	failing     map[uuid.UUID]bool
}

func newFakeRoleRepository(roles []model.Role, perms []model.Permission) *fakeRoleRepository {
	return &fakeRoleRepository{
		roles:       roles,
		permissions: perms,
		writes:      make(map[uuid.UUID][]uuid.UUID),
		failing:     make(map[uuid.UUID]bool),
	}
}

func (f *fakeRoleRepository) List(ctx context.Context, page, limit int, filter repository.ListFilter) ([]model.Role, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]model.Role, 0, len(f.roles))
	for _, role := range f.roles {
		if role.Trashed() == filter.Trashed {
			matched = append(matched, role)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].ID == id {
			role := f.roles[i]
			return &role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) Create(ctx context.Context, role *model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	f.roles = append(f.roles, *role)
	return nil
}

func (f *fakeRoleRepository) Update(ctx context.Context, role *model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].ID == role.ID {
			f.roles[i] = *role
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].ID == id {
			f.roles[i].DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) Restore(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].ID == id {
			f.roles[i].DeletedAt = gorm.DeletedAt{}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].ID == id {
			f.roles = append(f.roles[:i], f.roles[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRoleRepository) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.roles {
		if f.roles[i].Name == name && !f.roles[i].Trashed() {
			role := f.roles[i]
			return &role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) ListWithPermissions(ctx context.Context) ([]model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Role, 0, len(f.roles))
	for _, role := range f.roles {
		if !role.Trashed() {
			out = append(out, role)
		}
	}
	return out, nil
}

func (f *fakeRoleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Permission(nil), f.permissions...), nil
}

func (f *fakeRoleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[roleID] {
		return errors.New("write failed")
	}
	f.writes[roleID] = append([]uuid.UUID(nil), permissionIDs...)

	byID := make(map[uuid.UUID]model.Permission, len(f.permissions))
	for _, p := range f.permissions {
		byID[p.ID] = p
	}
	resolved := make([]model.Permission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if p, ok := byID[id]; ok {
			resolved = append(resolved, p)
		}
	}
	for i := range f.roles {
		if f.roles[i].ID == roleID {
			f.roles[i].Permissions = resolved
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRoleRepository) PermissionCodesByRoleName(ctx context.Context, roleName string) ([]string, error) {
	role, err := f.FindByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

// fakePermCollection exposes the repository's permission list as a
// Collection[model.Permission], the way the seeding path uses one.
type fakePermCollection struct {
	repo *fakeRoleRepository
}

func (f *fakePermCollection) List(ctx context.Context, page, limit int, filter repository.ListFilter) ([]model.Permission, int64, error) {
	perms, err := f.repo.ListPermissions(ctx)
	return perms, int64(len(perms)), err
}

func (f *fakePermCollection) FindByID(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	for i := range f.repo.permissions {
		if f.repo.permissions[i].ID == id {
			p := f.repo.permissions[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePermCollection) Create(ctx context.Context, p *model.Permission) error {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.repo.permissions = append(f.repo.permissions, *p)
	return nil
}

func (f *fakePermCollection) Update(ctx context.Context, p *model.Permission) error { return nil }

func (f *fakePermCollection) SoftDelete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakePermCollection) Restore(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakePermCollection) HardDelete(ctx context.Context, id uuid.UUID) error { return nil }

func newPermission(code, group string) model.Permission {
	return model.Permission{
		Base:  model.Base{ID: uuid.New()},
		Code:  code,
		Name:  code,
		Group: group,
	}
}

func newRole(name string, perms ...model.Permission) model.Role {
	return model.Role{
		Base:        model.Base{ID: uuid.New()},
		Name:        name,
		Permissions: perms,
	}
}

func matrixFixture(t *testing.T) (*PermissionMatrix, *fakeRoleRepository, []model.Role, []model.Permission) {
	t.Helper()

	perms := []model.Permission{
		newPermission("products.read", "products"),
		newPermission("products.write", "products"),
		newPermission("trash.manage", "trash"),
	}
	roles := []model.Role{
		newRole("admin", perms...),
		newRole("manager", perms[0]),
		newRole("staff"),
	}
	repo := newFakeRoleRepository(roles, perms)

	matrix, err := NewPermissionMatrix(context.Background(), repo)
	require.NoError(t, err)
	return matrix, repo, roles, perms
}

func TestMatrixSeedsFromGateway(t *testing.T) {
	matrix, _, roles, perms := matrixFixture(t)

	assert.True(t, matrix.Assigned(roles[0].ID, perms[2].ID))
	assert.True(t, matrix.Assigned(roles[1].ID, perms[0].ID))
	assert.False(t, matrix.Assigned(roles[1].ID, perms[1].ID))
	assert.False(t, matrix.Assigned(roles[2].ID, perms[0].ID))

	for _, role := range roles {
		assert.False(t, matrix.Dirty(role.ID))
	}
}

func TestMatrixToggleIsIdempotent(t *testing.T) {
	matrix, _, roles, perms := matrixFixture(t)

	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, true))
	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, true))
	assert.True(t, matrix.Assigned(roles[2].ID, perms[0].ID))

	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, false))
	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, false))
	assert.False(t, matrix.Assigned(roles[2].ID, perms[0].ID))
}

func TestMatrixToggleNoopLeavesRoleClean(t *testing.T) {
	matrix, repo, roles, perms := matrixFixture(t)

	// admin already holds the permission, staff never had it
	require.NoError(t, matrix.Toggle(roles[0].ID, perms[0].ID, true))
	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, false))

	assert.False(t, matrix.Dirty(roles[0].ID))
	assert.False(t, matrix.Dirty(roles[2].ID))

	result := matrix.Commit(context.Background())
	assert.Empty(t, result.Outcomes)
	assert.Empty(t, repo.writes)
}

func TestMatrixToggleUnknownRole(t *testing.T) {
	matrix, _, _, perms := matrixFixture(t)

	err := matrix.Toggle(uuid.New(), perms[0].ID, true)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestMatrixCommitWritesOnlyDirtyRoles(t *testing.T) {
	matrix, repo, roles, perms := matrixFixture(t)

	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, true))

	result := matrix.Commit(context.Background())
	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.AllSucceeded())
	assert.Equal(t, roles[2].ID, result.Outcomes[0].RoleID)

	assert.Contains(t, repo.writes, roles[2].ID)
	assert.NotContains(t, repo.writes, roles[0].ID)
	assert.False(t, matrix.Dirty(roles[2].ID))
}

func TestMatrixCommitPartialFailure(t *testing.T) {
	matrix, repo, roles, perms := matrixFixture(t)

	require.NoError(t, matrix.Toggle(roles[1].ID, perms[1].ID, true))
	require.NoError(t, matrix.Toggle(roles[2].ID, perms[0].ID, true))
	repo.failing[roles[1].ID] = true

	result := matrix.Commit(context.Background())
	require.Len(t, result.Outcomes, 2)
	assert.False(t, result.AllSucceeded())

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, roles[1].ID, failed[0].RoleID)
	assert.True(t, apperror.IsTransport(failed[0].Err))

	// the sibling write landed despite the failure
	assert.Contains(t, repo.writes, roles[2].ID)

	// the failed role stays dirty for selective retry
	assert.True(t, matrix.Dirty(roles[1].ID))
	assert.False(t, matrix.Dirty(roles[2].ID))

	repo.failing[roles[1].ID] = false
	retry := matrix.Commit(context.Background())
	require.Len(t, retry.Outcomes, 1)
	assert.True(t, retry.AllSucceeded())
	assert.ElementsMatch(t, []uuid.UUID{perms[0].ID, perms[1].ID}, repo.writes[roles[1].ID])
}

func TestMatrixCommitSendsFullPermissionList(t *testing.T) {
	matrix, repo, roles, perms := matrixFixture(t)

	// manager keeps products.read and gains trash.manage
	require.NoError(t, matrix.Toggle(roles[1].ID, perms[2].ID, true))

	result := matrix.Commit(context.Background())
	require.True(t, result.AllSucceeded())
	assert.ElementsMatch(t, []uuid.UUID{perms[0].ID, perms[2].ID}, repo.writes[roles[1].ID])
}

func TestMatrixCommitNothingDirty(t *testing.T) {
	matrix, repo, _, _ := matrixFixture(t)

	result := matrix.Commit(context.Background())
	assert.Empty(t, result.Outcomes)
	assert.True(t, result.AllSucceeded())
	assert.Empty(t, repo.writes)
}

func TestMatrixGroupedView(t *testing.T) {
	matrix, _, _, perms := matrixFixture(t)

	grouped := matrix.GroupedView()
	require.Len(t, grouped, 2)
	assert.Len(t, grouped["products"], 2)
	require.Len(t, grouped["trash"], 1)
	assert.Equal(t, perms[2].Code, grouped["trash"][0].Code)
}

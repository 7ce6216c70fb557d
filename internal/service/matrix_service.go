package service

import (
	"context"
	"fmt"
	"sync"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

// PermissionMatrix holds one admin edit session of the role-permission
// grid. Toggles are in-memory only; Commit writes each dirty role's full
// permission list to the gateway. Exactly one session owns an instance —
// concurrent sessions against the same role are last-commit-wins.
type PermissionMatrix struct {
	repo repository.RoleRepository

	mu          sync.Mutex
	roles       []model.Role
	permissions []model.Permission
	assigned    map[uuid.UUID]map[uuid.UUID]bool // roleID -> set of permissionIDs
	dirty       map[uuid.UUID]bool
}

// RoleOutcome is the per-role result of a Commit.
type RoleOutcome struct {
	RoleID uuid.UUID
	Err    error
}

// CommitResult enumerates every dirty role's write outcome. The underlying
// writes are not transactional across roles, so the caller needs this to
// know which roles to retry.
type CommitResult struct {
	Outcomes []RoleOutcome
}

// AllSucceeded reports whether every role write went through.
func (r CommitResult) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the outcomes whose write failed.
func (r CommitResult) Failed() []RoleOutcome {
	failed := make([]RoleOutcome, 0)
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// NewPermissionMatrix seeds a coordinator from the gateway: all roles with
// their current assignments plus the full permission list.
func NewPermissionMatrix(ctx context.Context, repo repository.RoleRepository) (*PermissionMatrix, error) {
	roles, err := repo.ListWithPermissions(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	perms, err := repo.ListPermissions(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}

	assigned := make(map[uuid.UUID]map[uuid.UUID]bool, len(roles))
	for _, role := range roles {
		set := make(map[uuid.UUID]bool, len(role.Permissions))
		for _, p := range role.Permissions {
			set[p.ID] = true
		}
		assigned[role.ID] = set
	}

	return &PermissionMatrix{
		repo:        repo,
		roles:       roles,
		permissions: perms,
		assigned:    assigned,
		dirty:       make(map[uuid.UUID]bool),
	}, nil
}

// Toggle adds or removes a permission from a role's in-memory set. Only a
// toggle that changes membership marks the role dirty; repeating the
// current state leaves the role clean so Commit skips it. Unknown roles
// are rejected; the grid only renders seeded rows.
func (m *PermissionMatrix) Toggle(roleID, permissionID uuid.UUID, included bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.assigned[roleID]
	if !ok {
		return fmt.Errorf("%w: unknown role %s", apperror.ErrInvalidArgument, roleID)
	}
	if set[permissionID] == included {
		return nil
	}

	if included {
		set[permissionID] = true
	} else {
		delete(set, permissionID)
	}
	m.dirty[roleID] = true
	return nil
}

// Assigned reports whether the role currently has the permission in this
// session's state.
func (m *PermissionMatrix) Assigned(roleID, permissionID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assigned[roleID][permissionID]
}

// Dirty reports whether the role has uncommitted changes.
func (m *PermissionMatrix) Dirty(roleID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty[roleID]
}

// GroupedView partitions all known permissions by their group for the
// matrix display. Pure function of the permission list: assignment state
// does not influence it.
func (m *PermissionMatrix) GroupedView() map[string][]model.Permission {
	m.mu.Lock()
	defer m.mu.Unlock()

	grouped := make(map[string][]model.Permission)
	for _, p := range m.permissions {
		grouped[p.Group] = append(grouped[p.Group], p)
	}
	return grouped
}

// Commit writes every dirty role's complete permission id list to the
// gateway, all roles concurrently. A failed role does not abort the
// others and stays dirty for selective retry; Commit itself never fails.
func (m *PermissionMatrix) Commit(ctx context.Context) CommitResult {
	m.mu.Lock()
	type pending struct {
		roleID  uuid.UUID
		permIDs []uuid.UUID
	}
	work := make([]pending, 0, len(m.dirty))
	for roleID := range m.dirty {
		set := m.assigned[roleID]
		ids := make([]uuid.UUID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		work = append(work, pending{roleID: roleID, permIDs: ids})
	}
	m.mu.Unlock()

	outcomes := make([]RoleOutcome, len(work))
	var wg sync.WaitGroup
	for i, w := range work {
		wg.Add(1)
		go func(slot int, w pending) {
			defer wg.Done()
			err := m.repo.ReplacePermissions(ctx, w.roleID, w.permIDs)
			if err != nil {
				err = apperror.Transport(err)
			}
			outcomes[slot] = RoleOutcome{RoleID: w.roleID, Err: err}
		}(i, w)
	}
	wg.Wait()

	m.mu.Lock()
	for _, o := range outcomes {
		if o.Err == nil {
			delete(m.dirty, o.RoleID)
		}
	}
	m.mu.Unlock()

	return CommitResult{Outcomes: outcomes}
}

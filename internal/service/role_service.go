package service

import (
	"context"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/logger"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// MatrixCommitRequest carries a bulk edit of the role-permission grid:
// for each role, the complete desired permission id list.
type MatrixCommitRequest struct {
	Assignments map[string][]string `json:"assignments" binding:"required"`
}

// MatrixOutcomeResponse is the per-role commit outcome returned to the UI.
type MatrixOutcomeResponse struct {
	RoleID string `json:"role_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// --- Interface ---

type RoleService interface {
	Lifecycle() *Lifecycle[model.Role]
	GetRole(ctx context.Context, id string) (*model.Role, error)
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*model.Role, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*model.Role, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	GroupedPermissions(ctx context.Context) (map[string][]model.Permission, error)
	CommitMatrix(ctx context.Context, req MatrixCommitRequest) ([]MatrixOutcomeResponse, bool, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	permCol   repository.Collection[model.Permission]
	txm       repository.TransactionManager
	lifecycle *Lifecycle[model.Role]
	log       *logger.Logger
}

func NewRoleService(repo repository.RoleRepository, permCol repository.Collection[model.Permission], txm repository.TransactionManager, notifier Notifier, recorder TransitionRecorder, log *logger.Logger) RoleService {
	s := &roleService{
		repo:      repo,
		permCol:   permCol,
		txm:       txm,
		lifecycle: NewLifecycle[model.Role](model.KindRole, repo, notifier, recorder, log),
		log:       log,
	}
	s.lifecycle.HardDeleteGuard = s.guardSystemRole
	return s
}

// Lifecycle exposes the generic state machine for the role kind.
func (s *roleService) Lifecycle() *Lifecycle[model.Role] {
	return s.lifecycle
}

func (s *roleService) GetRole(ctx context.Context, id string) (*model.Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid role id", apperror.ErrInvalidArgument)
	}
	role, err := s.repo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("%w: role %s", apperror.ErrNotFound, id)
	}
	return role, nil
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.repo.ListWithPermissions(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	return roles, nil
}

// CreateRole inserts the role and its initial permission set in one
// transaction, so a failed permission write does not leave a bare role.
func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*model.Role, error) {
	permIDs, err := parseIDs(req.Permissions)
	if err != nil {
		return nil, err
	}

	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.lifecycle.Create(txCtx, &role); err != nil {
			return err
		}
		if len(permIDs) == 0 {
			return nil
		}
		if err := s.repo.ReplacePermissions(txCtx, role.ID, permIDs); err != nil {
			return apperror.Transport(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*model.Role, error) {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid role id", apperror.ErrInvalidArgument)
	}

	role, err := s.lifecycle.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	role.Name = req.Name
	role.Description = req.Description
	if err := s.lifecycle.Update(ctx, role); err != nil {
		return nil, err
	}

	return s.GetRole(ctx, id)
}

// DeleteRole soft-deletes a non-system role.
func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid role id", apperror.ErrInvalidArgument)
	}
	if err := s.guardSystemRole(ctx, roleID); err != nil {
		return err
	}
	return s.lifecycle.SoftDelete(ctx, roleID)
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	return perms, nil
}

// GroupedPermissions partitions the permission list by group for the
// matrix display.
func (s *roleService) GroupedPermissions(ctx context.Context) (map[string][]model.Permission, error) {
	matrix, err := NewPermissionMatrix(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	return matrix.GroupedView(), nil
}

// CommitMatrix applies a bulk grid edit: it seeds a matrix session from
// the gateway, replays the requested assignments as toggles, and commits.
// Roles whose desired set already matches the seeded state stay clean and
// produce no write. The bool result reports whether every role write
// succeeded.
func (s *roleService) CommitMatrix(ctx context.Context, req MatrixCommitRequest) ([]MatrixOutcomeResponse, bool, error) {
	matrix, err := NewPermissionMatrix(ctx, s.repo)
	if err != nil {
		return nil, false, err
	}

	allPerms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, false, apperror.Transport(err)
	}

	for rawRole, rawPerms := range req.Assignments {
		roleID, err := uuid.Parse(rawRole)
		if err != nil {
			return nil, false, fmt.Errorf("%w: invalid role id '%s'", apperror.ErrInvalidArgument, rawRole)
		}
		desired := make(map[uuid.UUID]bool, len(rawPerms))
		permIDs, err := parseIDs(rawPerms)
		if err != nil {
			return nil, false, err
		}
		for _, id := range permIDs {
			desired[id] = true
		}
		for _, perm := range allPerms {
			if err := matrix.Toggle(roleID, perm.ID, desired[perm.ID]); err != nil {
				return nil, false, err
			}
		}
	}

	result := matrix.Commit(ctx)
	outcomes := make([]MatrixOutcomeResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		out := MatrixOutcomeResponse{RoleID: o.RoleID.String(), OK: o.Err == nil}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, result.AllSucceeded(), nil
}

// guardSystemRole prevents built-in roles from being deleted.
func (s *roleService) guardSystemRole(ctx context.Context, id uuid.UUID) error {
	role, err := s.lifecycle.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: cannot delete system role '%s'", apperror.ErrInvalidState, role.Name)
	}
	return nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		parsed, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid permission id '%s'", apperror.ErrInvalidArgument, r)
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}

// SeedDefaultRolesAndPermissions creates the default permissions and roles if not already present
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Code: "products.read", Name: "View products", Group: "products"},
		{Code: "products.write", Name: "Manage products", Group: "products"},
		{Code: "categories.read", Name: "View categories", Group: "categories"},
		{Code: "categories.write", Name: "Manage categories", Group: "categories"},
		{Code: "brands.read", Name: "View brands", Group: "brands"},
		{Code: "brands.write", Name: "Manage brands", Group: "brands"},
		{Code: "colors.read", Name: "View colors", Group: "colors"},
		{Code: "colors.write", Name: "Manage colors", Group: "colors"},
		{Code: "vouchers.read", Name: "View vouchers", Group: "vouchers"},
		{Code: "vouchers.write", Name: "Manage vouchers", Group: "vouchers"},
		{Code: "inventories.read", Name: "View inventories", Group: "inventories"},
		{Code: "inventories.write", Name: "Manage inventories", Group: "inventories"},
		{Code: "trash.manage", Name: "Restore and purge trashed records", Group: "trash"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Manage users", Group: "users"},
		{Code: "roles.manage", Name: "Manage roles and permissions", Group: "roles"},
		{Code: "audit.read", Name: "View activity history", Group: "audit"},
	}

	// Upsert permissions by code
	existingPerms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	existingByCode := make(map[string]model.Permission, len(existingPerms))
	for _, e := range existingPerms {
		existingByCode[e.Code] = e
	}
	for i := range defaultPermissions {
		p := &defaultPermissions[i]
		if existing, ok := existingByCode[p.Code]; ok {
			p.ID = existing.ID
			continue
		}
		if err := s.permCol.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
		}
	}

	permByCode := make(map[string]model.Permission, len(defaultPermissions))
	for _, p := range defaultPermissions {
		permByCode[p.Code] = p
	}

	allCodes := make([]string, 0, len(defaultPermissions))
	for _, p := range defaultPermissions {
		allCodes = append(allCodes, p.Code)
	}

	roleDefinitions := map[string]struct {
		Description string
		PermCodes   []string
	}{
		"admin": {
			Description: "Administrator with full access",
			PermCodes:   allCodes,
		},
		"manager": {
			Description: "Catalog manager",
			PermCodes: []string{
				"products.read", "products.write",
				"categories.read", "categories.write",
				"brands.read", "brands.write",
				"colors.read", "colors.write",
				"vouchers.read", "vouchers.write",
				"inventories.read", "inventories.write",
				"trash.manage", "audit.read",
			},
		},
		"staff": {
			Description: "Read-only staff",
			PermCodes: []string{
				"products.read", "categories.read", "brands.read",
				"colors.read", "vouchers.read", "inventories.read",
			},
		},
	}

	for roleName, def := range roleDefinitions {
		role, err := s.repo.FindByName(ctx, roleName)
		if err != nil {
			created := model.Role{
				Name:        roleName,
				Description: def.Description,
				IsSystem:    true,
			}
			if err := s.repo.Create(ctx, &created); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", roleName, err)
			}
			role = &created
		}

		permIDs := make([]uuid.UUID, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			if p, ok := permByCode[code]; ok {
				permIDs = append(permIDs, p.ID)
			}
		}
		if err := s.repo.ReplacePermissions(ctx, role.ID, permIDs); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", roleName, err)
		}
	}

	return nil
}

package services

import (
	"context"
	"errors"

	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Action names something a user can attempt inside a project.
type Action string

const (
	ActionViewProject   Action = "project:view"
	ActionUpdateProject Action = "project:update"
	ActionDeleteProject Action = "project:delete"
	ActionManageTasks   Action = "task:manage"
	ActionManageMembers Action = "member:manage"
	ActionUpdateRoles   Action = "role:update"
)

// minimumRole is the single permission table every mutation consults.
// Roles are ordered (OWNER > ADMIN > MEMBER), so holding a role at or
// above the listed one grants the action.
var minimumRole = map[Action]models.ProjectRole{
	ActionViewProject:   models.RoleMember,
	ActionUpdateProject: models.RoleAdmin,
	ActionDeleteProject: models.RoleOwner,
	ActionManageTasks:   models.RoleMember,
	ActionManageMembers: models.RoleAdmin,
	ActionUpdateRoles:   models.RoleOwner,
}

// AuthorizationGuard answers whether a user may perform an action in a
// project, based purely on their membership role.
type AuthorizationGuard interface {
	RoleOf(ctx context.Context, projectID, userID uuid.UUID) (models.ProjectRole, error)
	Can(ctx context.Context, projectID, userID uuid.UUID, action Action) (bool, error)
	Require(ctx context.Context, projectID, userID uuid.UUID, action Action) error
}

type AuthorizationGuardImpl struct {
	db *gorm.DB
}

func NewAuthorizationGuard(db *gorm.DB) AuthorizationGuard {
	return &AuthorizationGuardImpl{db: db}
}

// RoleOf returns the user's role in the project, or the empty string when
// the user is not a member. Absence is not an error.
func (g *AuthorizationGuardImpl) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (models.ProjectRole, error) {
	var member models.ProjectMember
	err := g.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (g *AuthorizationGuardImpl) Can(ctx context.Context, projectID, userID uuid.UUID, action Action) (bool, error) {
	required, ok := minimumRole[action]
	if !ok {
		return false, nil
	}

	role, err := g.RoleOf(ctx, projectID, userID)
	if err != nil {
		return false, err
	}

	return role.Level() >= required.Level(), nil
}

// Require is Can with the denial turned into a Forbidden error, phrased
// by how far the actor fell short.
func (g *AuthorizationGuardImpl) Require(ctx context.Context, projectID, userID uuid.UUID, action Action) error {
	role, err := g.RoleOf(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		return forbiddenf("you are not a member of this project")
	}

	required, ok := minimumRole[action]
	if !ok {
		return forbiddenf("unknown action %s", action)
	}
	if role.Level() < required.Level() {
		return forbiddenf("%s requires the %s role", action, required)
	}
	return nil
}

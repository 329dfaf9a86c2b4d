package services

import (
	"context"
	"errors"
	"log"
	"time"

	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// MembershipService owns the (project, user, role) records and the
// invariants around them: exactly one OWNER per project, created with the
// project and never reassigned.
type MembershipService interface {
	AddOwner(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) error
	Grant(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID, role models.ProjectRole) (*models.ProjectMember, error)
	AddMember(ctx context.Context, projectID uuid.UUID, email string, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectMember, error)
	RemoveMember(ctx context.Context, projectID, targetID, actorID uuid.UUID) error
	UpdateRole(ctx context.Context, projectID, targetID uuid.UUID, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectMember, error)
	ListMembers(ctx context.Context, projectID, actorID uuid.UUID) ([]models.ProjectMember, error)
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	IsAdmin(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	UserProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
}

type MembershipServiceImpl struct {
	db    *gorm.DB
	guard AuthorizationGuard
}

func NewMembershipService(db *gorm.DB, guard AuthorizationGuard) MembershipService {
	return &MembershipServiceImpl{db: db, guard: guard}
}

// AddOwner creates the OWNER record for a freshly created project. It is
// only called from project creation, inside the same transaction, so no
// existing-owner lookup is needed; a duplicate call for the same pair
// still fails as a conflict.
func (s *MembershipServiceImpl) AddOwner(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) error {
	_, err := s.Grant(ctx, tx, projectID, userID, models.RoleOwner)
	return err
}

// Grant writes a membership record without permission checks. Callers are
// the owning flows (project creation, invitation acceptance, code joins)
// which have already decided the role.
func (s *MembershipServiceImpl) Grant(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID, role models.ProjectRole) (*models.ProjectMember, error) {
	if tx == nil {
		tx = s.db
	}

	var existing models.ProjectMember
	err := tx.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&existing).Error
	if err == nil {
		return nil, conflictf("user is already a member of this project")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := models.ProjectMember{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *MembershipServiceImpl) AddMember(ctx context.Context, projectID uuid.UUID, email string, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectMember, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return nil, err
	}

	if role == models.RoleOwner {
		return nil, conflictf("cannot add another owner, each project has exactly one")
	}
	if !role.Valid() {
		return nil, conflictf("unknown role %q", role)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("no user with email %s", email)
	}
	if err != nil {
		return nil, err
	}

	member, err := s.Grant(ctx, nil, projectID, user.ID, role)
	if err != nil {
		return nil, err
	}
	member.User = user

	log.Printf("added %s to project %s with role %s", email, projectID, role)
	return member, nil
}

func (s *MembershipServiceImpl) RemoveMember(ctx context.Context, projectID, targetID, actorID uuid.UUID) error {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return err
	}

	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, targetID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundf("member not found in project")
	}
	if err != nil {
		return err
	}

	if member.Role == models.RoleOwner {
		return conflictf("cannot remove the project owner")
	}

	return s.db.WithContext(ctx).Delete(&member).Error
}

// UpdateRole changes a member's role. Only the owner may do this, the
// owner's own role can never be changed, and OWNER can never be granted.
func (s *MembershipServiceImpl) UpdateRole(ctx context.Context, projectID, targetID uuid.UUID, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectMember, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionUpdateRoles); err != nil {
		return nil, err
	}

	if role == models.RoleOwner {
		return nil, conflictf("cannot assign the OWNER role")
	}
	if !role.Valid() {
		return nil, conflictf("unknown role %q", role)
	}

	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, targetID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("member not found in project")
	}
	if err != nil {
		return nil, err
	}

	if member.Role == models.RoleOwner {
		return nil, conflictf("cannot change the owner's role")
	}

	member.Role = role
	if err := s.db.WithContext(ctx).Save(&member).Error; err != nil {
		return nil, err
	}

	log.Printf("role of %s in project %s set to %s", targetID, projectID, role)
	return &member, nil
}

func (s *MembershipServiceImpl) ListMembers(ctx context.Context, projectID, actorID uuid.UUID) ([]models.ProjectMember, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at").
		Find(&members).Error
	return members, err
}

func (s *MembershipServiceImpl) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	role, err := s.guard.RoleOf(ctx, projectID, userID)
	return role != "", err
}

func (s *MembershipServiceImpl) IsOwner(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	role, err := s.guard.RoleOf(ctx, projectID, userID)
	return role == models.RoleOwner, err
}

func (s *MembershipServiceImpl) IsAdmin(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	role, err := s.guard.RoleOf(ctx, projectID, userID)
	return role == models.RoleAdmin, err
}

func (s *MembershipServiceImpl) UserProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.created_at").
		Find(&projects).Error
	return projects, err
}

package services_test

import (
	"context"
	"testing"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AuthorizationGuardTestSuite struct {
	suite.Suite
	db    *gorm.DB
	guard services.AuthorizationGuard

	ownerID    uuid.UUID
	adminID    uuid.UUID
	memberID   uuid.UUID
	strangerID uuid.UUID
	projectID  uuid.UUID
}

func (s *AuthorizationGuardTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	s.guard = services.NewAuthorizationGuard(s.db)

	owner := createUser(s.T(), s.db, "owner")
	admin := createUser(s.T(), s.db, "admin")
	member := createUser(s.T(), s.db, "member")
	stranger := createUser(s.T(), s.db, "stranger")

	project := createProject(s.T(), s.db, "Test Project", owner.ID)
	addMember(s.T(), s.db, project.ID, admin.ID, models.RoleAdmin)
	addMember(s.T(), s.db, project.ID, member.ID, models.RoleMember)

	s.ownerID = owner.ID
	s.adminID = admin.ID
	s.memberID = member.ID
	s.strangerID = stranger.ID
	s.projectID = project.ID
}

func (s *AuthorizationGuardTestSuite) TestRoleOf() {
	role, err := s.guard.RoleOf(context.Background(), s.projectID, s.ownerID)
	s.NoError(err)
	s.Equal(models.RoleOwner, role)

	role, err = s.guard.RoleOf(context.Background(), s.projectID, s.memberID)
	s.NoError(err)
	s.Equal(models.RoleMember, role)
}

func (s *AuthorizationGuardTestSuite) TestRoleOfNonMemberIsEmptyNotError() {
	role, err := s.guard.RoleOf(context.Background(), s.projectID, s.strangerID)
	s.NoError(err)
	s.Equal(models.ProjectRole(""), role)
}

func (s *AuthorizationGuardTestSuite) TestOwnerCanDoEverything() {
	actions := []services.Action{
		services.ActionViewProject,
		services.ActionUpdateProject,
		services.ActionDeleteProject,
		services.ActionManageTasks,
		services.ActionManageMembers,
		services.ActionUpdateRoles,
	}
	for _, action := range actions {
		s.NoError(s.guard.Require(context.Background(), s.projectID, s.ownerID, action))
	}
}

func (s *AuthorizationGuardTestSuite) TestAdminCannotDeleteOrChangeRoles() {
	s.NoError(s.guard.Require(context.Background(), s.projectID, s.adminID, services.ActionUpdateProject))
	s.NoError(s.guard.Require(context.Background(), s.projectID, s.adminID, services.ActionManageMembers))

	err := s.guard.Require(context.Background(), s.projectID, s.adminID, services.ActionDeleteProject)
	s.ErrorIs(err, services.ErrForbidden)

	err = s.guard.Require(context.Background(), s.projectID, s.adminID, services.ActionUpdateRoles)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *AuthorizationGuardTestSuite) TestMemberCanViewAndManageTasksOnly() {
	s.NoError(s.guard.Require(context.Background(), s.projectID, s.memberID, services.ActionViewProject))
	s.NoError(s.guard.Require(context.Background(), s.projectID, s.memberID, services.ActionManageTasks))

	err := s.guard.Require(context.Background(), s.projectID, s.memberID, services.ActionUpdateProject)
	s.ErrorIs(err, services.ErrForbidden)

	err = s.guard.Require(context.Background(), s.projectID, s.memberID, services.ActionManageMembers)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *AuthorizationGuardTestSuite) TestNonMemberIsForbiddenEverywhere() {
	err := s.guard.Require(context.Background(), s.projectID, s.strangerID, services.ActionViewProject)
	s.ErrorIs(err, services.ErrForbidden)
	s.Contains(err.Error(), "not a member")
}

func (s *AuthorizationGuardTestSuite) TestCan() {
	ok, err := s.guard.Can(context.Background(), s.projectID, s.memberID, services.ActionManageTasks)
	s.NoError(err)
	s.True(ok)

	ok, err = s.guard.Can(context.Background(), s.projectID, s.memberID, services.ActionDeleteProject)
	s.NoError(err)
	s.False(ok)

	ok, err = s.guard.Can(context.Background(), s.projectID, s.strangerID, services.ActionViewProject)
	s.NoError(err)
	s.False(ok)
}

func (s *AuthorizationGuardTestSuite) TestRoleOrdering() {
	s.Greater(models.RoleOwner.Level(), models.RoleAdmin.Level())
	s.Greater(models.RoleAdmin.Level(), models.RoleMember.Level())
	s.Greater(models.RoleMember.Level(), models.ProjectRole("").Level())
}

func TestAuthorizationGuardTestSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationGuardTestSuite))
}

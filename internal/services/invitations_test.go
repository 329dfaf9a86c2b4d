package services_test

import (
	"context"
	"strings"
	"testing"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type InvitationTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service services.InvitationService

	owner   models.User
	admin   models.User
	member  models.User
	invitee models.User
	project models.Project
}

func (s *InvitationTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	guard := services.NewAuthorizationGuard(s.db)
	membership := services.NewMembershipService(s.db, guard)
	s.service = services.NewInvitationService(s.db, guard, membership, nil)

	s.owner = createUser(s.T(), s.db, "owner")
	s.admin = createUser(s.T(), s.db, "admin")
	s.member = createUser(s.T(), s.db, "member")
	s.invitee = createUser(s.T(), s.db, "invitee")

	s.project = createProject(s.T(), s.db, "Test Project", s.owner.ID)
	addMember(s.T(), s.db, s.project.ID, s.admin.ID, models.RoleAdmin)
	addMember(s.T(), s.db, s.project.ID, s.member.ID, models.RoleMember)
}

func (s *InvitationTestSuite) TestInvite() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.admin.ID)
	s.NoError(err)
	s.Equal(models.InvitationPending, invitation.Status)
	s.Equal(s.invitee.ID, invitation.InviteeID)
	s.Equal(s.admin.ID, invitation.InviterID)
}

func (s *InvitationTestSuite) TestInviteByPlainMemberForbidden() {
	_, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.member.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *InvitationTestSuite) TestInviteUnknownEmail() {
	_, err := s.service.Invite(context.Background(), s.project.ID, "nobody@test.com", models.RoleMember, s.owner.ID)
	s.ErrorIs(err, services.ErrNotFound)
}

func (s *InvitationTestSuite) TestInviteExistingMemberConflicts() {
	_, err := s.service.Invite(context.Background(), s.project.ID, s.member.Email, models.RoleMember, s.owner.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestInviteAsOwnerRejected() {
	_, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleOwner, s.owner.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestSecondPendingInvitationConflicts() {
	_, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleAdmin, s.owner.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestAcceptGrantsInvitedRole() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleAdmin, s.owner.ID)
	s.Require().NoError(err)

	member, err := s.service.Accept(context.Background(), invitation.ID, s.invitee.ID)
	s.NoError(err)
	s.Equal(models.RoleAdmin, member.Role)
	s.Equal(s.project.ID, member.ProjectID)

	var reloaded models.ProjectInvitation
	s.Require().NoError(s.db.First(&reloaded, "id = ?", invitation.ID).Error)
	s.Equal(models.InvitationAccepted, reloaded.Status)
	s.NotNil(reloaded.RespondedAt)
}

func (s *InvitationTestSuite) TestAcceptByWrongUserForbidden() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.Accept(context.Background(), invitation.ID, s.member.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *InvitationTestSuite) TestAcceptTwiceConflicts() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.Accept(context.Background(), invitation.ID, s.invitee.ID)
	s.Require().NoError(err)

	_, err = s.service.Accept(context.Background(), invitation.ID, s.invitee.ID)
	s.ErrorIs(err, services.ErrConflict)
	s.Contains(err.Error(), "accepted")
}

func (s *InvitationTestSuite) TestDecline() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	s.NoError(s.service.Decline(context.Background(), invitation.ID, s.invitee.ID))

	var reloaded models.ProjectInvitation
	s.Require().NoError(s.db.First(&reloaded, "id = ?", invitation.ID).Error)
	s.Equal(models.InvitationDeclined, reloaded.Status)

	// Declining did not create a membership.
	var count int64
	s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", s.project.ID, s.invitee.ID).
		Count(&count)
	s.Zero(count)
}

func (s *InvitationTestSuite) TestDeclinedUserCanBeReinvited() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Decline(context.Background(), invitation.ID, s.invitee.ID))

	_, err = s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.NoError(err)
}

func (s *InvitationTestSuite) TestCancel() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	s.NoError(s.service.Cancel(context.Background(), invitation.ID, s.project.ID, s.admin.ID))

	var reloaded models.ProjectInvitation
	s.Require().NoError(s.db.First(&reloaded, "id = ?", invitation.ID).Error)
	s.Equal(models.InvitationCancelled, reloaded.Status)
}

func (s *InvitationTestSuite) TestCancelAgainstWrongProjectConflicts() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	other := createProject(s.T(), s.db, "Other Project", s.owner.ID)

	err = s.service.Cancel(context.Background(), invitation.ID, other.ID, s.owner.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestCancelNonPendingConflicts() {
	invitation, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Decline(context.Background(), invitation.ID, s.invitee.ID))

	err = s.service.Cancel(context.Background(), invitation.ID, s.project.ID, s.owner.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestPendingForUser() {
	_, err := s.service.Invite(context.Background(), s.project.ID, s.invitee.Email, models.RoleMember, s.owner.ID)
	s.Require().NoError(err)

	pending, err := s.service.PendingForUser(context.Background(), s.invitee.ID)
	s.NoError(err)
	s.Len(pending, 1)

	pending, err = s.service.PendingForUser(context.Background(), s.member.ID)
	s.NoError(err)
	s.Empty(pending)
}

func (s *InvitationTestSuite) TestGenerateInviteCode() {
	code, err := s.service.GenerateInviteCode(context.Background(), s.project.ID, s.owner.ID)
	s.NoError(err)
	s.Len(code, 8)
	s.Equal(strings.ToUpper(code), code)
}

func (s *InvitationTestSuite) TestRegenerateInvalidatesOldCode() {
	first, err := s.service.GenerateInviteCode(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)

	second, err := s.service.GenerateInviteCode(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)
	s.NotEqual(first, second)

	_, err = s.service.JoinByCode(context.Background(), first, s.invitee.ID)
	s.ErrorIs(err, services.ErrNotFound)
}

func (s *InvitationTestSuite) TestJoinByCodeGrantsMember() {
	code, err := s.service.GenerateInviteCode(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)

	member, err := s.service.JoinByCode(context.Background(), code, s.invitee.ID)
	s.NoError(err)
	s.Equal(models.RoleMember, member.Role)
	s.Equal(s.project.ID, member.ProjectID)
}

func (s *InvitationTestSuite) TestJoinByCodeTwiceConflicts() {
	code, err := s.service.GenerateInviteCode(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.JoinByCode(context.Background(), code, s.invitee.ID)
	s.Require().NoError(err)

	_, err = s.service.JoinByCode(context.Background(), code, s.invitee.ID)
	s.ErrorIs(err, services.ErrConflict)
}

func (s *InvitationTestSuite) TestJoinByUnknownCode() {
	_, err := s.service.JoinByCode(context.Background(), "NOPE1234", s.invitee.ID)
	s.ErrorIs(err, services.ErrNotFound)
}

func TestInvitationTestSuite(t *testing.T) {
	suite.Run(t, new(InvitationTestSuite))
}

package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/worker"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const inviteCodeLength = 8

// InvitationService runs the invitation lifecycle. An invitation starts
// PENDING and moves exactly once to ACCEPTED, DECLINED or CANCELLED;
// acceptance is what produces the membership record.
type InvitationService interface {
	Invite(ctx context.Context, projectID uuid.UUID, inviteeEmail string, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectInvitation, error)
	Accept(ctx context.Context, invitationID, actorID uuid.UUID) (*models.ProjectMember, error)
	Decline(ctx context.Context, invitationID, actorID uuid.UUID) error
	Cancel(ctx context.Context, invitationID, projectID, actorID uuid.UUID) error
	PendingForUser(ctx context.Context, userID uuid.UUID) ([]models.ProjectInvitation, error)
	ListForProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.ProjectInvitation, error)
	GenerateInviteCode(ctx context.Context, projectID, actorID uuid.UUID) (string, error)
	JoinByCode(ctx context.Context, code string, actorID uuid.UUID) (*models.ProjectMember, error)
}

type InvitationServiceImpl struct {
	db         *gorm.DB
	guard      AuthorizationGuard
	membership MembershipService
	jobs       *worker.JobQueue
}

// NewInvitationService wires the workflow. jobs may be nil; notification
// enqueueing is then skipped.
func NewInvitationService(db *gorm.DB, guard AuthorizationGuard, membership MembershipService, jobs *worker.JobQueue) InvitationService {
	return &InvitationServiceImpl{db: db, guard: guard, membership: membership, jobs: jobs}
}

func (s *InvitationServiceImpl) Invite(ctx context.Context, projectID uuid.UUID, inviteeEmail string, role models.ProjectRole, actorID uuid.UUID) (*models.ProjectInvitation, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return nil, err
	}

	if role == models.RoleOwner {
		return nil, conflictf("cannot invite someone as OWNER")
	}
	if !role.Valid() {
		return nil, conflictf("unknown role %q", role)
	}

	var invitee models.User
	err := s.db.WithContext(ctx).Where("email = ?", inviteeEmail).First(&invitee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("no user with email %s", inviteeEmail)
	}
	if err != nil {
		return nil, err
	}

	isMember, err := s.membership.IsMember(ctx, projectID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, conflictf("user is already a member of this project")
	}

	var pending int64
	err = s.db.WithContext(ctx).Model(&models.ProjectInvitation{}).
		Where("project_id = ? AND invitee_id = ? AND status = ?", projectID, invitee.ID, models.InvitationPending).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, conflictf("user already has a pending invitation")
	}

	invitation := models.ProjectInvitation{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: projectID,
		InviteeID: invitee.ID,
		InviterID: actorID,
		Role:      role,
		Status:    models.InvitationPending,
		InvitedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		return nil, err
	}
	invitation.Invitee = invitee

	s.notify(worker.JobTypeInvitationNotification, map[string]interface{}{
		"invitation_id": invitation.ID.String(),
		"project_id":    projectID.String(),
		"invitee_email": invitee.Email,
	})

	log.Printf("invitation sent to %s for project %s", invitee.Email, projectID)
	return &invitation, nil
}

// Accept flips the invitation to ACCEPTED and grants the invited role, in
// one transaction so a membership never appears without its terminal
// invitation record.
func (s *InvitationServiceImpl) Accept(ctx context.Context, invitationID, actorID uuid.UUID) (*models.ProjectMember, error) {
	invitation, err := s.load(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if invitation.InviteeID != actorID {
		return nil, forbiddenf("this invitation is not for you")
	}
	if !invitation.IsPending() {
		return nil, conflictf("invitation has already been %s", strings.ToLower(string(invitation.Status)))
	}

	var member *models.ProjectMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		invitation.Status = models.InvitationAccepted
		invitation.RespondedAt = &now
		if err := tx.Save(invitation).Error; err != nil {
			return err
		}

		member, err = s.membership.Grant(ctx, tx, invitation.ProjectID, invitation.InviteeID, invitation.Role)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("user %s accepted invitation %s and joined project %s", actorID, invitationID, invitation.ProjectID)
	return member, nil
}

func (s *InvitationServiceImpl) Decline(ctx context.Context, invitationID, actorID uuid.UUID) error {
	invitation, err := s.load(ctx, invitationID)
	if err != nil {
		return err
	}

	if invitation.InviteeID != actorID {
		return forbiddenf("this invitation is not for you")
	}
	if !invitation.IsPending() {
		return conflictf("invitation has already been %s", strings.ToLower(string(invitation.Status)))
	}

	now := time.Now()
	invitation.Status = models.InvitationDeclined
	invitation.RespondedAt = &now
	return s.db.WithContext(ctx).Save(invitation).Error
}

func (s *InvitationServiceImpl) Cancel(ctx context.Context, invitationID, projectID, actorID uuid.UUID) error {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return err
	}

	invitation, err := s.load(ctx, invitationID)
	if err != nil {
		return err
	}

	if invitation.ProjectID != projectID {
		return conflictf("invitation does not belong to this project")
	}
	if !invitation.IsPending() {
		return conflictf("only pending invitations can be cancelled")
	}

	now := time.Now()
	invitation.Status = models.InvitationCancelled
	invitation.RespondedAt = &now
	return s.db.WithContext(ctx).Save(invitation).Error
}

func (s *InvitationServiceImpl) PendingForUser(ctx context.Context, userID uuid.UUID) ([]models.ProjectInvitation, error) {
	var invitations []models.ProjectInvitation
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Inviter").
		Where("invitee_id = ? AND status = ?", userID, models.InvitationPending).
		Order("invited_at DESC").
		Find(&invitations).Error
	return invitations, err
}

func (s *InvitationServiceImpl) ListForProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.ProjectInvitation, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return nil, err
	}

	var invitations []models.ProjectInvitation
	err := s.db.WithContext(ctx).
		Preload("Invitee").
		Preload("Inviter").
		Where("project_id = ?", projectID).
		Order("invited_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// GenerateInviteCode writes a fresh short code onto the project,
// retrying on collisions. Any previous code is overwritten and stops
// working immediately.
func (s *InvitationServiceImpl) GenerateInviteCode(ctx context.Context, projectID, actorID uuid.UUID) (string, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageMembers); err != nil {
		return "", err
	}

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFoundf("project not found")
	}
	if err != nil {
		return "", err
	}

	var code string
	for {
		code = strings.ToUpper(uuid.Must(uuid.NewV4()).String()[:inviteCodeLength])

		var taken int64
		if err := s.db.WithContext(ctx).Model(&models.Project{}).
			Where("invite_code = ?", code).
			Count(&taken).Error; err != nil {
			return "", err
		}
		if taken == 0 {
			break
		}
	}

	project.InviteCode = &code
	if err := s.db.WithContext(ctx).Save(&project).Error; err != nil {
		return "", err
	}

	log.Printf("generated invite code for project %s", projectID)
	return code, nil
}

// JoinByCode grants MEMBER, always. The role a holder might have been
// invited with elsewhere never carries over to a code join.
func (s *InvitationServiceImpl) JoinByCode(ctx context.Context, code string, actorID uuid.UUID) (*models.ProjectMember, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Where("invite_code = ?", code).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("invalid invite code")
	}
	if err != nil {
		return nil, err
	}

	member, err := s.membership.Grant(ctx, nil, project.ID, actorID, models.RoleMember)
	if err != nil {
		return nil, err
	}

	log.Printf("user %s joined project %s via invite code", actorID, project.ID)
	return member, nil
}

func (s *InvitationServiceImpl) load(ctx context.Context, invitationID uuid.UUID) (*models.ProjectInvitation, error) {
	var invitation models.ProjectInvitation
	err := s.db.WithContext(ctx).First(&invitation, "id = ?", invitationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("invitation not found")
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (s *InvitationServiceImpl) notify(jobType worker.JobType, payload map[string]interface{}) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.Enqueue(worker.QueueDefault, jobType, payload); err != nil {
		log.Printf("failed to enqueue %s job: %v", jobType, err)
	}
}

package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// ProjectRole is an ordered permission level scoped to one project.
type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleAdmin  ProjectRole = "ADMIN"
	RoleMember ProjectRole = "MEMBER"
)

// Level orders roles so permission checks can compare instead of
// enumerating role combinations. Unknown roles rank below MEMBER.
func (r ProjectRole) Level() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

func (r ProjectRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationDeclined  InvitationStatus = "DECLINED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)

type Project struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`

	// InviteCode is overwritten on every regeneration; the previous code
	// stops resolving the instant a new one is written.
	InviteCode *string `json:"invite_code,omitempty" gorm:"uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []ProjectMember `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	Tasks   []Task          `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}

// ProjectMember grants a user standing access to a project. The composite
// unique index turns concurrent joins for the same pair into conflicts.
type ProjectMember struct {
	ID        uuid.UUID   `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID   `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_user"`
	UserID    uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_user"`
	Role      ProjectRole `json:"role" gorm:"not null"`
	JoinedAt  time.Time   `json:"joined_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID"`
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ProjectInvitation is a proposed membership awaiting the invitee's
// decision. PENDING is the only non-terminal status; the partial unique
// index allows at most one pending invitation per (project, invitee).
type ProjectInvitation struct {
	ID        uuid.UUID        `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID        `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_pending_invitation,where:status = 'PENDING'"`
	InviteeID uuid.UUID        `json:"invitee_id" gorm:"type:uuid;not null;uniqueIndex:idx_pending_invitation,where:status = 'PENDING'"`
	InviterID uuid.UUID        `json:"inviter_id" gorm:"type:uuid;not null"`
	Role      ProjectRole      `json:"role" gorm:"not null"`
	Status    InvitationStatus `json:"status" gorm:"not null;default:'PENDING'"`

	InvitedAt   time.Time  `json:"invited_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID"`
	Invitee User    `json:"invitee,omitempty" gorm:"foreignKey:InviteeID"`
	Inviter User    `json:"inviter,omitempty" gorm:"foreignKey:InviterID"`
}

func (i *ProjectInvitation) IsPending() bool {
	return i.Status == InvitationPending
}

package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "NONE"
	RecurrenceDaily   RecurrencePattern = "DAILY"
	RecurrenceWeekly  RecurrencePattern = "WEEKLY"
	RecurrenceMonthly RecurrencePattern = "MONTHLY"
)

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID   uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	// Status is the single source of truth for the lifecycle; the
	// completed flag is derived from it, never stored.
	Status   TaskStatus   `json:"status" gorm:"not null;default:'TODO'"`
	Priority TaskPriority `json:"priority" gorm:"not null;default:'MEDIUM'"`

	// Recurrence fields are stored and returned but never materialized
	// into task instances.
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern" gorm:"not null;default:'NONE'"`
	RecurrenceEndDate *time.Time        `json:"recurrence_end_date,omitempty"`

	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty" gorm:"type:uuid"`
	AssignedTo   *User      `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID"`

	// DependsOn holds the outgoing dependency edges. The inverse
	// ("blocked by") view is queried from the join table instead of
	// being stored twice.
	DependsOn []*Task `json:"depends_on,omitempty" gorm:"many2many:task_dependencies;joinForeignKey:TaskID;joinReferences:DependsOnTaskID"`

	Tags []Tag `json:"tags,omitempty" gorm:"many2many:task_tags"`
}

// Completed reports whether the task is done. It exists as a view over
// Status so the two can never diverge.
func (t *Task) Completed() bool {
	return t.Status == StatusDone
}

// Tag is an unordered label scoped to one project, orthogonal to the
// task lifecycle.
type Tag struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_project_tag"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_project_tag"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID"`
	Tasks   []Task  `json:"-" gorm:"many2many:task_tags"`
}

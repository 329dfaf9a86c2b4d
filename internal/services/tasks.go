package services

import (
	"context"
	"errors"
	"log"
	"time"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/worker"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CreateTaskInput struct {
	Title             string
	Description       string
	DueDate           *time.Time
	Priority          models.TaskPriority
	RecurrencePattern models.RecurrencePattern
	RecurrenceEndDate *time.Time
	TagIDs            []uuid.UUID
	DependsOnIDs      []uuid.UUID
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *models.TaskPriority

	// Completed is the legacy completion toggle. It is mapped onto
	// Status (true -> DONE, false -> TODO) so the flag and the status
	// can no longer drift apart.
	Completed *bool
}

// TaskService manages the task lifecycle: status, assignment, dependency
// edges and the order-sensitive bulk operations.
type TaskService interface {
	Create(ctx context.Context, projectID uuid.UUID, input CreateTaskInput, actorID uuid.UUID) (*models.Task, error)
	Get(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error)
	ListByProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.Task, error)
	Update(ctx context.Context, taskID uuid.UUID, input UpdateTaskInput, actorID uuid.UUID) (*models.Task, error)
	UpdateStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, actorID uuid.UUID) (*models.Task, error)
	Assign(ctx context.Context, taskID, assigneeID, actorID uuid.UUID) (*models.Task, error)
	Unassign(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error)
	AddDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error
	RemoveDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error
	BlockedBy(ctx context.Context, taskID, actorID uuid.UUID) ([]models.Task, error)
	Delete(ctx context.Context, taskID, actorID uuid.UUID) error
	BulkComplete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error)
	BulkDelete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error)
}

type TaskServiceImpl struct {
	db    *gorm.DB
	guard AuthorizationGuard
	jobs  *worker.JobQueue
}

func NewTaskService(db *gorm.DB, guard AuthorizationGuard, jobs *worker.JobQueue) TaskService {
	return &TaskServiceImpl{db: db, guard: guard, jobs: jobs}
}

func (s *TaskServiceImpl) Create(ctx context.Context, projectID uuid.UUID, input CreateTaskInput, actorID uuid.UUID) (*models.Task, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}

	task := models.Task{
		ID:                uuid.Must(uuid.NewV4()),
		ProjectID:         projectID,
		Title:             input.Title,
		Description:       input.Description,
		DueDate:           input.DueDate,
		Status:            models.StatusTodo,
		Priority:          input.Priority,
		RecurrencePattern: input.RecurrencePattern,
		RecurrenceEndDate: input.RecurrenceEndDate,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.RecurrencePattern == "" {
		task.RecurrencePattern = models.RecurrenceNone
	}

	if len(input.TagIDs) > 0 {
		var tags []models.Tag
		if err := s.db.WithContext(ctx).
			Where("id IN ? AND project_id = ?", input.TagIDs, projectID).
			Find(&tags).Error; err != nil {
			return nil, err
		}
		task.Tags = tags
	}

	if len(input.DependsOnIDs) > 0 {
		var deps []*models.Task
		if err := s.db.WithContext(ctx).
			Where("id IN ? AND project_id = ?", input.DependsOnIDs, projectID).
			Find(&deps).Error; err != nil {
			return nil, err
		}
		task.DependsOn = deps
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, err
	}

	if task.DueDate != nil && s.jobs != nil {
		payload := map[string]interface{}{
			"task_id": task.ID.String(),
			"due":     task.DueDate.Format(time.RFC3339),
		}
		if err := s.jobs.EnqueueAt(worker.QueueLow, worker.JobTypeDueDateReminder, payload, task.DueDate.Add(-24*time.Hour)); err != nil {
			log.Printf("failed to enqueue reminder for task %s: %v", task.ID, err)
		}
	}

	log.Printf("task %s created in project %s", task.ID, projectID)
	return &task, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) ListByProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.Task, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}

	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("DependsOn").
		Preload("AssignedTo").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&tasks).Error
	return tasks, err
}

// Update edits task fields. The legacy Completed toggle goes through the
// same gate as a status change and is rewritten as one.
func (s *TaskServiceImpl) Update(ctx context.Context, taskID uuid.UUID, input UpdateTaskInput, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}

	if input.Completed != nil {
		if err := s.requireStatusChange(ctx, task, actorID); err != nil {
			return nil, err
		}
		if *input.Completed {
			task.Status = models.StatusDone
		} else if task.Status == models.StatusDone {
			task.Status = models.StatusTodo
		}
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus moves a task between TODO, IN_PROGRESS and DONE. Any
// transition is allowed, but only the assignee or an owner/admin may
// make it; a plain member who is not assigned is rejected.
func (s *TaskServiceImpl) UpdateStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, actorID uuid.UUID) (*models.Task, error) {
	if !status.Valid() {
		return nil, conflictf("unknown status %q", status)
	}

	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}
	if err := s.requireStatusChange(ctx, task, actorID); err != nil {
		return nil, err
	}

	task.Status = status
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, err
	}

	log.Printf("task %s status set to %s by %s", taskID, status, actorID)
	return task, nil
}

// Assign sets the assignee, who must themselves be a member of the
// task's project. Unassign deliberately has no such check; the asymmetry
// is inherited policy, not an oversight.
func (s *TaskServiceImpl) Assign(ctx context.Context, taskID, assigneeID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}

	role, err := s.guard.RoleOf(ctx, task.ProjectID, assigneeID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, conflictf("cannot assign task to non-member")
	}

	task.AssignedToID = &assigneeID
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("AssignedTo").First(task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Unassign clears the assignee. Any project member may do this.
func (s *TaskServiceImpl) Unassign(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}

	task.AssignedToID = nil
	task.AssignedTo = nil
	if err := s.db.WithContext(ctx).Model(task).Update("assigned_to_id", nil).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// AddDependency records that task cannot bulk-complete until dependsOn is
// done. Cycles are not detected; a cyclic pair is stored and simply never
// bulk-completes.
func (s *TaskServiceImpl) AddDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error {
	if taskID == dependsOnID {
		return conflictf("task cannot depend on itself")
	}

	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}

	dep, err := s.load(ctx, dependsOnID)
	if err != nil {
		return err
	}
	if dep.ProjectID != task.ProjectID {
		return conflictf("dependency must belong to the same project")
	}

	return s.db.WithContext(ctx).Model(task).Association("DependsOn").Append(dep)
}

func (s *TaskServiceImpl) RemoveDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}

	dep, err := s.load(ctx, dependsOnID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(task).Association("DependsOn").Delete(dep)
}

// BlockedBy is the inverse dependency view, read from the edge table
// rather than stored as a second relation.
func (s *TaskServiceImpl) BlockedBy(ctx context.Context, taskID, actorID uuid.UUID) ([]models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}

	var blocked []models.Task
	err = s.db.WithContext(ctx).
		Joins("JOIN task_dependencies ON task_dependencies.task_id = tasks.id").
		Where("task_dependencies.depends_on_task_id = ?", taskID).
		Find(&blocked).Error
	return blocked, err
}

func (s *TaskServiceImpl) Delete(ctx context.Context, taskID, actorID uuid.UUID) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Delete(task).Error
}

// BulkComplete marks each accessible task DONE if every task it depends
// on is already completed. Tasks are evaluated in request order and each
// result is persisted before the next task is checked, so a dependency
// placed earlier in the batch can unblock a dependent later in the same
// batch. Skipped tasks (no membership, unmet dependency) are silently
// omitted from the returned ids.
func (s *TaskServiceImpl) BulkComplete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error) {
	completed := make([]uuid.UUID, 0, len(taskIDs))

	for _, id := range taskIDs {
		var task models.Task
		err := s.db.WithContext(ctx).Preload("DependsOn").First(&task, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return completed, err
		}

		role, err := s.guard.RoleOf(ctx, task.ProjectID, actorID)
		if err != nil {
			return completed, err
		}
		if role == "" {
			continue
		}

		satisfied := true
		for _, dep := range task.DependsOn {
			// Re-read so a dependency completed earlier in this
			// batch counts.
			var current models.Task
			if err := s.db.WithContext(ctx).Select("id", "status").First(&current, "id = ?", dep.ID).Error; err != nil {
				return completed, err
			}
			if !current.Completed() {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}

		if err := s.db.WithContext(ctx).Model(&task).Update("status", models.StatusDone).Error; err != nil {
			return completed, err
		}
		completed = append(completed, id)
	}

	log.Printf("bulk completed %d of %d tasks", len(completed), len(taskIDs))
	return completed, nil
}

// BulkDelete removes every task in the batch whose project the actor is a
// member of. There is no dependency check: a task may be deleted while
// others still depend on it, leaving dangling edges behind. A cleanup job
// is enqueued to prune those.
func (s *TaskServiceImpl) BulkDelete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error) {
	deleted := make([]uuid.UUID, 0, len(taskIDs))

	for _, id := range taskIDs {
		var task models.Task
		err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}

		role, err := s.guard.RoleOf(ctx, task.ProjectID, actorID)
		if err != nil {
			return deleted, err
		}
		if role == "" {
			continue
		}

		if err := s.db.WithContext(ctx).Delete(&task).Error; err != nil {
			return deleted, err
		}
		deleted = append(deleted, id)
	}

	if len(deleted) > 0 && s.jobs != nil {
		ids := make([]string, len(deleted))
		for i, id := range deleted {
			ids[i] = id.String()
		}
		payload := map[string]interface{}{"task_ids": ids}
		if err := s.jobs.Enqueue(worker.QueueLow, worker.JobTypeDependencyCleanup, payload); err != nil {
			log.Printf("failed to enqueue dependency cleanup: %v", err)
		}
	}

	log.Printf("bulk deleted %d of %d tasks", len(deleted), len(taskIDs))
	return deleted, nil
}

// requireStatusChange enforces the status gate: the assignee may move
// their own task, everyone else needs ADMIN or better.
func (s *TaskServiceImpl) requireStatusChange(ctx context.Context, task *models.Task, actorID uuid.UUID) error {
	if task.AssignedToID != nil && *task.AssignedToID == actorID {
		return nil
	}

	role, err := s.guard.RoleOf(ctx, task.ProjectID, actorID)
	if err != nil {
		return err
	}
	if role.Level() >= models.RoleAdmin.Level() {
		return nil
	}
	return forbiddenf("only the assigned user or project admins can update this task")
}

func (s *TaskServiceImpl) load(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("DependsOn").
		First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("task not found")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"projecthub/backend/internal/cache"
	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
)

const (
	taskCacheTTL     = 30 * time.Minute
	taskListCacheTTL = 10 * time.Minute
)

// CachedTaskService decorates TaskService with a multi-level cache keyed
// per task and per project list. Reads are served from the cache after a
// membership check; every mutation invalidates the affected keys.
type CachedTaskService struct {
	tasks TaskService
	guard AuthorizationGuard
	cache *cache.MultiLevelCache
}

func NewCachedTaskService(tasks TaskService, guard AuthorizationGuard, cacheInstance *cache.MultiLevelCache) *CachedTaskService {
	return &CachedTaskService{tasks: tasks, guard: guard, cache: cacheInstance}
}

func taskKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task:%s", taskID)
}

func projectTasksKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project_tasks:%s", projectID)
}

func (s *CachedTaskService) Create(ctx context.Context, projectID uuid.UUID, input CreateTaskInput, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.Create(ctx, projectID, input, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(projectTasksKey(projectID))
	return task, nil
}

// Get serves a cached task when one exists, re-checking membership
// against the cached project id so a hit is never handed to a
// non-member. On a miss the underlying service loads and checks.
func (s *CachedTaskService) Get(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(taskID), &cached); err == nil {
		if err := s.guard.Require(ctx, cached.ProjectID, actorID, ActionViewProject); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	task, err := s.tasks.Get(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(taskKey(taskID), task, taskCacheTTL)
	return task, nil
}

func (s *CachedTaskService) ListByProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.Task, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}

	var cached []models.Task
	if err := s.cache.Get(projectTasksKey(projectID), &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.tasks.ListByProject(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(projectTasksKey(projectID), tasks, taskListCacheTTL)
	return tasks, nil
}

func (s *CachedTaskService) Update(ctx context.Context, taskID uuid.UUID, input UpdateTaskInput, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.Update(ctx, taskID, input, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) UpdateStatus(ctx context.Context, taskID uuid.UUID, status models.TaskStatus, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.UpdateStatus(ctx, taskID, status, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) Assign(ctx context.Context, taskID, assigneeID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.Assign(ctx, taskID, assigneeID, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) Unassign(ctx context.Context, taskID, actorID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.Unassign(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) AddDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error {
	if err := s.tasks.AddDependency(ctx, taskID, dependsOnID, actorID); err != nil {
		return err
	}
	s.cache.Delete(taskKey(taskID))
	s.cache.Delete(taskKey(dependsOnID))
	return nil
}

func (s *CachedTaskService) RemoveDependency(ctx context.Context, taskID, dependsOnID, actorID uuid.UUID) error {
	if err := s.tasks.RemoveDependency(ctx, taskID, dependsOnID, actorID); err != nil {
		return err
	}
	s.cache.Delete(taskKey(taskID))
	s.cache.Delete(taskKey(dependsOnID))
	return nil
}

func (s *CachedTaskService) BlockedBy(ctx context.Context, taskID, actorID uuid.UUID) ([]models.Task, error) {
	return s.tasks.BlockedBy(ctx, taskID, actorID)
}

func (s *CachedTaskService) Delete(ctx context.Context, taskID, actorID uuid.UUID) error {
	if err := s.tasks.Delete(ctx, taskID, actorID); err != nil {
		return err
	}
	s.cache.Delete(taskKey(taskID))
	s.cache.DeletePattern("project_tasks:*")
	return nil
}

func (s *CachedTaskService) BulkComplete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error) {
	completed, err := s.tasks.BulkComplete(ctx, taskIDs, actorID)
	for _, id := range completed {
		s.cache.Delete(taskKey(id))
	}
	if len(completed) > 0 {
		s.cache.DeletePattern("project_tasks:*")
	}
	return completed, err
}

func (s *CachedTaskService) BulkDelete(ctx context.Context, taskIDs []uuid.UUID, actorID uuid.UUID) ([]uuid.UUID, error) {
	deleted, err := s.tasks.BulkDelete(ctx, taskIDs, actorID)
	for _, id := range deleted {
		s.cache.Delete(taskKey(id))
	}
	if len(deleted) > 0 {
		s.cache.DeletePattern("project_tasks:*")
	}
	return deleted, err
}

func (s *CachedTaskService) invalidate(task *models.Task) {
	s.cache.Delete(taskKey(task.ID))
	s.cache.Delete(projectTasksKey(task.ProjectID))
}

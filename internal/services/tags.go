package services

import (
	"context"
	"errors"

	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TagService manages project-scoped labels. Tags are orthogonal to the
// task lifecycle; any member may create and attach them.
type TagService interface {
	Create(ctx context.Context, projectID uuid.UUID, name, color string, actorID uuid.UUID) (*models.Tag, error)
	ListByProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.Tag, error)
	Delete(ctx context.Context, tagID, actorID uuid.UUID) error
	Attach(ctx context.Context, taskID, tagID, actorID uuid.UUID) error
	Detach(ctx context.Context, taskID, tagID, actorID uuid.UUID) error
}

type TagServiceImpl struct {
	db    *gorm.DB
	guard AuthorizationGuard
}

func NewTagService(db *gorm.DB, guard AuthorizationGuard) TagService {
	return &TagServiceImpl{db: db, guard: guard}
}

func (s *TagServiceImpl) Create(ctx context.Context, projectID uuid.UUID, name, color string, actorID uuid.UUID) (*models.Tag, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionManageTasks); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("project_id = ? AND name = ?", projectID, name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflictf("tag %q already exists in this project", name)
	}

	tag := models.Tag{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: projectID,
		Name:      name,
		Color:     color,
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *TagServiceImpl) ListByProject(ctx context.Context, projectID, actorID uuid.UUID) ([]models.Tag, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionViewProject); err != nil {
		return nil, err
	}

	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name").
		Find(&tags).Error
	return tags, err
}

func (s *TagServiceImpl) Delete(ctx context.Context, tagID, actorID uuid.UUID) error {
	tag, err := s.loadTag(ctx, tagID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, tag.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(tag).Association("Tasks").Clear(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(tag).Error
}

func (s *TagServiceImpl) Attach(ctx context.Context, taskID, tagID, actorID uuid.UUID) error {
	task, tag, err := s.loadPair(ctx, taskID, tagID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}
	if tag.ProjectID != task.ProjectID {
		return conflictf("tag belongs to a different project")
	}

	return s.db.WithContext(ctx).Model(task).Association("Tags").Append(tag)
}

func (s *TagServiceImpl) Detach(ctx context.Context, taskID, tagID, actorID uuid.UUID) error {
	task, tag, err := s.loadPair(ctx, taskID, tagID)
	if err != nil {
		return err
	}
	if err := s.guard.Require(ctx, task.ProjectID, actorID, ActionManageTasks); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(task).Association("Tags").Delete(tag)
}

func (s *TagServiceImpl) loadTag(ctx context.Context, tagID uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, "id = ?", tagID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("tag not found")
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *TagServiceImpl) loadPair(ctx context.Context, taskID, tagID uuid.UUID) (*models.Task, *models.Tag, error) {
	var task models.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, notFoundf("task not found")
	}
	if err != nil {
		return nil, nil, err
	}

	tag, err := s.loadTag(ctx, tagID)
	if err != nil {
		return nil, nil, err
	}
	return &task, tag, nil
}

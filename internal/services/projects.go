package services

import (
	"context"
	"errors"
	"log"

	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CreateProjectInput struct {
	Title       string
	Description string
}

type UpdateProjectInput struct {
	Title       *string
	Description *string
}

// Progress summarizes task completion for one project.
type Progress struct {
	ProjectID      uuid.UUID `json:"project_id"`
	TotalTasks     int64     `json:"total_tasks"`
	CompletedTasks int64     `json:"completed_tasks"`
	Percentage     float64   `json:"progress_percentage"`
}

type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput, userID uuid.UUID) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	Get(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, projectID uuid.UUID, input UpdateProjectInput, actorID uuid.UUID) (*models.Project, error)
	Delete(ctx context.Context, projectID, actorID uuid.UUID) error
	Progress(ctx context.Context, projectID, userID uuid.UUID) (*Progress, error)
}

type ProjectServiceImpl struct {
	db         *gorm.DB
	guard      AuthorizationGuard
	membership MembershipService
}

func NewProjectService(db *gorm.DB, guard AuthorizationGuard, membership MembershipService) ProjectService {
	return &ProjectServiceImpl{db: db, guard: guard, membership: membership}
}

// Create persists the project and its OWNER membership in one
// transaction, so no project ever exists without exactly one owner.
func (s *ProjectServiceImpl) Create(ctx context.Context, input CreateProjectInput, userID uuid.UUID) (*models.Project, error) {
	project := models.Project{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       input.Title,
		Description: input.Description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return s.membership.AddOwner(ctx, tx, project.ID, userID)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("project %s created by %s", project.ID, userID)
	return &project, nil
}

func (s *ProjectServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	return s.membership.UserProjects(ctx, userID)
}

func (s *ProjectServiceImpl) Get(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	if err := s.guard.Require(ctx, projectID, userID, ActionViewProject); err != nil {
		return nil, err
	}

	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Tasks").
		Preload("Tasks.Tags").
		Preload("Tasks.DependsOn").
		Preload("Tasks.AssignedTo").
		First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("project not found")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectServiceImpl) Update(ctx context.Context, projectID uuid.UUID, input UpdateProjectInput, actorID uuid.UUID) (*models.Project, error) {
	if err := s.guard.Require(ctx, projectID, actorID, ActionUpdateProject); err != nil {
		return nil, err
	}

	var project models.Project
	err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("project not found")
	}
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		project.Title = *input.Title
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.db.WithContext(ctx).Save(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectServiceImpl) Delete(ctx context.Context, projectID, actorID uuid.UUID) error {
	if err := s.guard.Require(ctx, projectID, actorID, ActionDeleteProject); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Tag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, "id = ?", projectID).Error
	})
}

func (s *ProjectServiceImpl) Progress(ctx context.Context, projectID, userID uuid.UUID) (*Progress, error) {
	if err := s.guard.Require(ctx, projectID, userID, ActionViewProject); err != nil {
		return nil, err
	}

	var total, completed int64
	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ?", projectID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ? AND status = ?", projectID, models.StatusDone).
		Count(&completed).Error; err != nil {
		return nil, err
	}

	progress := &Progress{
		ProjectID:      projectID,
		TotalTasks:     total,
		CompletedTasks: completed,
	}
	if total > 0 {
		progress.Percentage = float64(completed) / float64(total) * 100
	}
	return progress, nil
}

package services

import (
	"context"
	"time"

	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type UserStats struct {
	Projects       int64 `json:"projects"`
	AssignedTasks  int64 `json:"assigned_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	OverdueTasks   int64 `json:"overdue_tasks"`
}

// StatsService aggregates per-user counts across all projects the user
// belongs to.
type StatsService interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*UserStats, error)
}

type StatsServiceImpl struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) StatsService {
	return &StatsServiceImpl{db: db}
}

func (s *StatsServiceImpl) ForUser(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	stats := &UserStats{}

	if err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("user_id = ?", userID).
		Count(&stats.Projects).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("assigned_to_id = ?", userID).
		Count(&stats.AssignedTasks).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("assigned_to_id = ? AND status = ?", userID, models.StatusDone).
		Count(&stats.CompletedTasks).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("assigned_to_id = ? AND status <> ? AND due_date < ?", userID, models.StatusDone, time.Now()).
		Count(&stats.OverdueTasks).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

package services_test

import (
	"context"
	"testing"
	"time"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StatsTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service services.StatsService

	user    models.User
	project models.Project
}

func (s *StatsTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	s.service = services.NewStatsService(s.db)

	s.user = createUser(s.T(), s.db, "alice")
	s.project = createProject(s.T(), s.db, "Stats Project", s.user.ID)
}

func (s *StatsTestSuite) assignTask(title string, status models.TaskStatus, due *time.Time) models.Task {
	task := createTask(s.T(), s.db, s.project.ID, title, status)
	s.Require().NoError(s.db.Model(&task).Updates(map[string]interface{}{
		"assigned_to_id": s.user.ID,
		"due_date":       due,
	}).Error)
	return task
}

func (s *StatsTestSuite) TestForUser() {
	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	s.assignTask("done", models.StatusDone, &past)
	s.assignTask("overdue", models.StatusInProgress, &past)
	s.assignTask("on track", models.StatusTodo, &future)
	createTask(s.T(), s.db, s.project.ID, "unassigned", models.StatusTodo)

	stats, err := s.service.ForUser(context.Background(), s.user.ID)
	s.NoError(err)
	s.Equal(int64(1), stats.Projects)
	s.Equal(int64(3), stats.AssignedTasks)
	s.Equal(int64(1), stats.CompletedTasks)
	s.Equal(int64(1), stats.OverdueTasks)
}

func (s *StatsTestSuite) TestDoneTaskIsNeverOverdue() {
	past := time.Now().Add(-48 * time.Hour)
	s.assignTask("late but done", models.StatusDone, &past)

	stats, err := s.service.ForUser(context.Background(), s.user.ID)
	s.NoError(err)
	s.Zero(stats.OverdueTasks)
}

func (s *StatsTestSuite) TestEmptyUser() {
	other := createUser(s.T(), s.db, "bob")

	stats, err := s.service.ForUser(context.Background(), other.ID)
	s.NoError(err)
	s.Zero(stats.Projects)
	s.Zero(stats.AssignedTasks)
	s.Zero(stats.CompletedTasks)
	s.Zero(stats.OverdueTasks)
}

func TestStatsTestSuite(t *testing.T) {
	suite.Run(t, new(StatsTestSuite))
}

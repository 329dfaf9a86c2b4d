package services_test

import (
	"testing"
	"time"

	"projecthub/backend/internal/database"
	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB opens an in-memory sqlite database with the full schema.
// The pool is pinned to one connection so every query sees the same
// in-memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: username,
		Email:    username + "@test.com",
		Password: "hashedpassword",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProject(t *testing.T, db *gorm.DB, title string, ownerID uuid.UUID) models.Project {
	t.Helper()

	project := models.Project{
		ID:    uuid.Must(uuid.NewV4()),
		Title: title,
	}
	require.NoError(t, db.Create(&project).Error)

	member := models.ProjectMember{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: project.ID,
		UserID:    ownerID,
		Role:      models.RoleOwner,
		JoinedAt:  time.Now(),
	}
	require.NoError(t, db.Create(&member).Error)
	return project
}

func addMember(t *testing.T, db *gorm.DB, projectID, userID uuid.UUID, role models.ProjectRole) {
	t.Helper()

	member := models.ProjectMember{
		ID:        uuid.Must(uuid.NewV4()),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	require.NoError(t, db.Create(&member).Error)
}

func createTask(t *testing.T, db *gorm.DB, projectID uuid.UUID, title string, status models.TaskStatus) models.Task {
	t.Helper()

	task := models.Task{
		ID:                uuid.Must(uuid.NewV4()),
		ProjectID:         projectID,
		Title:             title,
		Status:            status,
		Priority:          models.PriorityMedium,
		RecurrencePattern: models.RecurrenceNone,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

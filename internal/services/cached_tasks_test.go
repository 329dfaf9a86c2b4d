package services_test

import (
	"context"
	"testing"

	"projecthub/backend/internal/cache"
	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type CachedTaskTestSuite struct {
	suite.Suite
	db      *gorm.DB
	cache   *cache.MultiLevelCache
	service *services.CachedTaskService

	owner   models.User
	project models.Project
}

func (s *CachedTaskTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	guard := services.NewAuthorizationGuard(s.db)
	s.cache = cache.NewMultiLevelCache(nil)
	s.service = services.NewCachedTaskService(services.NewTaskService(s.db, guard, nil), guard, s.cache)

	s.owner = createUser(s.T(), s.db, "owner")
	s.project = createProject(s.T(), s.db, "Cached Project", s.owner.ID)
}

func (s *CachedTaskTestSuite) TestGetPopulatesCache() {
	task := createTask(s.T(), s.db, s.project.ID, "Cache Me", models.StatusTodo)

	_, err := s.service.Get(context.Background(), task.ID, s.owner.ID)
	s.NoError(err)

	ok, err := s.cache.Exists("task:" + task.ID.String())
	s.NoError(err)
	s.True(ok)
}

func (s *CachedTaskTestSuite) TestGetServesFromCache() {
	task := createTask(s.T(), s.db, s.project.ID, "Original Title", models.StatusTodo)

	_, err := s.service.Get(context.Background(), task.ID, s.owner.ID)
	s.Require().NoError(err)

	// A direct DB write does not invalidate, so the next read must come
	// from the cache and still show the old title.
	s.Require().NoError(s.db.Model(&task).Update("title", "Changed Behind The Cache").Error)

	got, err := s.service.Get(context.Background(), task.ID, s.owner.ID)
	s.NoError(err)
	s.Equal("Original Title", got.Title)
}

func (s *CachedTaskTestSuite) TestCacheHitStillChecksMembership() {
	task := createTask(s.T(), s.db, s.project.ID, "Members Only", models.StatusTodo)
	outsider := createUser(s.T(), s.db, "lurker")

	_, err := s.service.Get(context.Background(), task.ID, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.Get(context.Background(), task.ID, outsider.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *CachedTaskTestSuite) TestListServesFromCache() {
	createTask(s.T(), s.db, s.project.ID, "Listed", models.StatusTodo)

	first, err := s.service.ListByProject(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Require().Len(first, 1)

	createTask(s.T(), s.db, s.project.ID, "Snuck In", models.StatusTodo)

	second, err := s.service.ListByProject(context.Background(), s.project.ID, s.owner.ID)
	s.NoError(err)
	s.Len(second, 1)
}

func (s *CachedTaskTestSuite) TestListMissForOutsiderForbidden() {
	outsider := createUser(s.T(), s.db, "outsider")

	_, err := s.service.ListByProject(context.Background(), s.project.ID, outsider.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *CachedTaskTestSuite) TestForbiddenGetIsNotCached() {
	task := createTask(s.T(), s.db, s.project.ID, "Private", models.StatusTodo)
	outsider := createUser(s.T(), s.db, "outsider")

	_, err := s.service.Get(context.Background(), task.ID, outsider.ID)
	s.ErrorIs(err, services.ErrForbidden)

	ok, err := s.cache.Exists("task:" + task.ID.String())
	s.NoError(err)
	s.False(ok)
}

func (s *CachedTaskTestSuite) TestStatusUpdateInvalidates() {
	task := createTask(s.T(), s.db, s.project.ID, "Stale", models.StatusTodo)

	_, err := s.service.Get(context.Background(), task.ID, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.ListByProject(context.Background(), s.project.ID, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.UpdateStatus(context.Background(), task.ID, models.StatusDone, s.owner.ID)
	s.Require().NoError(err)

	ok, _ := s.cache.Exists("task:" + task.ID.String())
	s.False(ok)
	ok, _ = s.cache.Exists("project_tasks:" + s.project.ID.String())
	s.False(ok)
}

func (s *CachedTaskTestSuite) TestBulkCompleteInvalidatesCompletedOnly() {
	done := createTask(s.T(), s.db, s.project.ID, "Will Complete", models.StatusTodo)
	blocked := createTask(s.T(), s.db, s.project.ID, "Blocked", models.StatusTodo)
	blocker := createTask(s.T(), s.db, s.project.ID, "Blocker", models.StatusTodo)
	s.Require().NoError(s.service.AddDependency(context.Background(), blocked.ID, blocker.ID, s.owner.ID))

	_, err := s.service.Get(context.Background(), done.ID, s.owner.ID)
	s.Require().NoError(err)
	_, err = s.service.Get(context.Background(), blocked.ID, s.owner.ID)
	s.Require().NoError(err)

	completed, err := s.service.BulkComplete(context.Background(), []uuid.UUID{done.ID, blocked.ID}, s.owner.ID)
	s.NoError(err)
	s.Len(completed, 1)

	ok, _ := s.cache.Exists("task:" + done.ID.String())
	s.False(ok)
	ok, _ = s.cache.Exists("task:" + blocked.ID.String())
	s.True(ok)
}

func TestCachedTaskTestSuite(t *testing.T) {
	suite.Run(t, new(CachedTaskTestSuite))
}

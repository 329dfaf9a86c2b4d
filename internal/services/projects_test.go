package services_test

import (
	"context"
	"testing"

	"projecthub/backend/internal/models"
	"projecthub/backend/internal/services"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ProjectTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service services.ProjectService

	owner    models.User
	admin    models.User
	member   models.User
	outsider models.User
	project  models.Project
}

func (s *ProjectTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	guard := services.NewAuthorizationGuard(s.db)
	membership := services.NewMembershipService(s.db, guard)
	s.service = services.NewProjectService(s.db, guard, membership)

	s.owner = createUser(s.T(), s.db, "owner")
	s.admin = createUser(s.T(), s.db, "admin")
	s.member = createUser(s.T(), s.db, "member")
	s.outsider = createUser(s.T(), s.db, "outsider")

	s.project = createProject(s.T(), s.db, "Test Project", s.owner.ID)
	addMember(s.T(), s.db, s.project.ID, s.admin.ID, models.RoleAdmin)
	addMember(s.T(), s.db, s.project.ID, s.member.ID, models.RoleMember)
}

func (s *ProjectTestSuite) TestCreateMakesCreatorOwner() {
	project, err := s.service.Create(context.Background(), services.CreateProjectInput{
		Title:       "Fresh Project",
		Description: "with an owner",
	}, s.outsider.ID)
	s.NoError(err)

	var member models.ProjectMember
	s.Require().NoError(s.db.
		Where("project_id = ? AND user_id = ?", project.ID, s.outsider.ID).
		First(&member).Error)
	s.Equal(models.RoleOwner, member.Role)
}

func (s *ProjectTestSuite) TestListReturnsOnlyMemberProjects() {
	projects, err := s.service.List(context.Background(), s.member.ID)
	s.NoError(err)
	s.Len(projects, 1)

	projects, err = s.service.List(context.Background(), s.outsider.ID)
	s.NoError(err)
	s.Empty(projects)
}

func (s *ProjectTestSuite) TestGetRequiresMembership() {
	project, err := s.service.Get(context.Background(), s.project.ID, s.member.ID)
	s.NoError(err)
	s.Equal(s.project.ID, project.ID)

	_, err = s.service.Get(context.Background(), s.project.ID, s.outsider.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ProjectTestSuite) TestUpdateByAdmin() {
	title := "Renamed"
	project, err := s.service.Update(context.Background(), s.project.ID, services.UpdateProjectInput{
		Title: &title,
	}, s.admin.ID)
	s.NoError(err)
	s.Equal("Renamed", project.Title)
}

func (s *ProjectTestSuite) TestUpdateByMemberForbidden() {
	title := "Nope"
	_, err := s.service.Update(context.Background(), s.project.ID, services.UpdateProjectInput{
		Title: &title,
	}, s.member.ID)
	s.ErrorIs(err, services.ErrForbidden)
}

func (s *ProjectTestSuite) TestDeleteOwnerOnly() {
	err := s.service.Delete(context.Background(), s.project.ID, s.admin.ID)
	s.ErrorIs(err, services.ErrForbidden)

	s.NoError(s.service.Delete(context.Background(), s.project.ID, s.owner.ID))

	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", s.project.ID).Count(&count)
	s.Zero(count)
}

func (s *ProjectTestSuite) TestDeleteCascades() {
	createTask(s.T(), s.db, s.project.ID, "Doomed", models.StatusTodo)

	s.Require().NoError(s.service.Delete(context.Background(), s.project.ID, s.owner.ID))

	var tasks, members int64
	s.db.Model(&models.Task{}).Where("project_id = ?", s.project.ID).Count(&tasks)
	s.db.Model(&models.ProjectMember{}).Where("project_id = ?", s.project.ID).Count(&members)
	s.Zero(tasks)
	s.Zero(members)
}

func (s *ProjectTestSuite) TestProgress() {
	createTask(s.T(), s.db, s.project.ID, "Done", models.StatusDone)
	createTask(s.T(), s.db, s.project.ID, "Doing", models.StatusInProgress)
	createTask(s.T(), s.db, s.project.ID, "Todo", models.StatusTodo)
	createTask(s.T(), s.db, s.project.ID, "Also Done", models.StatusDone)

	progress, err := s.service.Progress(context.Background(), s.project.ID, s.member.ID)
	s.NoError(err)
	s.Equal(int64(4), progress.TotalTasks)
	s.Equal(int64(2), progress.CompletedTasks)
	s.InDelta(50.0, progress.Percentage, 0.001)
}

func (s *ProjectTestSuite) TestProgressEmptyProject() {
	progress, err := s.service.Progress(context.Background(), s.project.ID, s.owner.ID)
	s.NoError(err)
	s.Zero(progress.TotalTasks)
	s.Zero(progress.Percentage)
}

func TestProjectTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectTestSuite))
}

package handlers

import (
	"time"

	"projecthub/backend/internal/config"
	"projecthub/backend/internal/middleware"
	"projecthub/backend/internal/monitoring"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth        *AuthHandler
	Projects    *ProjectHandler
	Members     *MemberHandler
	Invitations *InvitationHandler
	Tasks       *TaskHandler
	Tags        *TagHandler
	Stats       *StatsHandler
}

func NewRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.Recovery())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}

	router.GET("/health", monitoring.HealthHandler)
	router.GET("/metrics", monitoring.MetricsHandler)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	{
		protected.GET("/me", h.Auth.Me)
		protected.GET("/users/search", h.Auth.SearchUser)
		protected.GET("/stats", h.Stats.GetUserStats)

		projects := protected.Group("/projects")
		{
			projects.POST("", h.Projects.CreateProject)
			projects.GET("", h.Projects.GetProjects)
			projects.GET("/:id", h.Projects.GetProject)
			projects.PUT("/:id", h.Projects.UpdateProject)
			projects.DELETE("/:id", h.Projects.DeleteProject)
			projects.GET("/:id/progress", h.Projects.GetProgress)

			projects.GET("/:id/members", h.Members.ListMembers)
			projects.POST("/:id/members", h.Members.AddMember)
			projects.PUT("/:id/members/:userId", h.Members.UpdateRole)
			projects.DELETE("/:id/members/:userId", h.Members.RemoveMember)

			projects.POST("/:id/invitations", h.Invitations.Invite)
			projects.GET("/:id/invitations", h.Invitations.ListForProject)
			projects.DELETE("/:id/invitations/:invitationId", h.Invitations.Cancel)
			projects.POST("/:id/invite-code", h.Invitations.GenerateInviteCode)

			projects.POST("/:id/tasks", h.Tasks.CreateTask)
			projects.GET("/:id/tasks", h.Tasks.ListTasks)

			projects.POST("/:id/tags", h.Tags.CreateTag)
			projects.GET("/:id/tags", h.Tags.ListTags)
		}

		invitations := protected.Group("/invitations")
		{
			invitations.GET("/pending", h.Invitations.PendingForUser)
			invitations.POST("/:id/accept", h.Invitations.Accept)
			invitations.POST("/:id/decline", h.Invitations.Decline)
		}

		protected.POST("/join", h.Invitations.JoinByCode)

		tasks := protected.Group("/tasks")
		{
			tasks.GET("/:id", h.Tasks.GetTask)
			tasks.PUT("/:id", h.Tasks.UpdateTask)
			tasks.PATCH("/:id/status", h.Tasks.UpdateStatus)
			tasks.POST("/:id/assign", h.Tasks.AssignTask)
			tasks.DELETE("/:id/assign", h.Tasks.UnassignTask)
			tasks.POST("/:id/dependencies", h.Tasks.AddDependency)
			tasks.DELETE("/:id/dependencies/:dependsOnId", h.Tasks.RemoveDependency)
			tasks.GET("/:id/blockers", h.Tasks.GetBlockers)
			tasks.DELETE("/:id", h.Tasks.DeleteTask)
			tasks.POST("/bulk-complete", h.Tasks.BulkComplete)
			tasks.POST("/bulk-delete", h.Tasks.BulkDelete)

			tasks.POST("/:id/tags/:tagId", h.Tags.AttachTag)
			tasks.DELETE("/:id/tags/:tagId", h.Tags.DetachTag)
		}

		protected.DELETE("/tags/:id", h.Tags.DeleteTag)
	}

	return router
}

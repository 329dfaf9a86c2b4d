package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projecthub/backend/internal/cache"
	"projecthub/backend/internal/config"
	"projecthub/backend/internal/database"
	"projecthub/backend/internal/handlers"
	"projecthub/backend/internal/monitoring"
	"projecthub/backend/internal/services"
	"projecthub/backend/internal/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	multiCache := cache.NewMultiLevelCache(cache.NewRedisCacheWithClient(redisClient))

	jobQueue := worker.NewJobQueue(redisClient)
	jobWorker := worker.New(worker.Config{
		RedisClient:  redisClient,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		Queues:       cfg.Worker.Queues,
	})
	jobWorker.RegisterHandler(worker.JobTypeInvitationNotification, worker.NewInvitationNotificationHandler())
	jobWorker.RegisterHandler(worker.JobTypeDueDateReminder, worker.NewDueDateReminderHandler(db))
	jobWorker.RegisterHandler(worker.JobTypeDependencyCleanup, worker.NewDependencyCleanupHandler(db))
	jobWorker.Start(cfg.Worker.Concurrency)
	defer jobWorker.Stop()

	guard := services.NewAuthorizationGuard(db)
	membershipService := services.NewMembershipService(db, guard)
	projectService := services.NewProjectService(db, guard, membershipService)
	invitationService := services.NewInvitationService(db, guard, membershipService, jobQueue)
	taskService := services.NewCachedTaskService(services.NewTaskService(db, guard, jobQueue), guard, multiCache)
	tagService := services.NewTagService(db, guard)
	statsService := services.NewStatsService(db)
	authService := services.NewAuthService(db, cfg.Auth)
	registerService := services.NewRegisterService(db, cfg.Auth.BCryptCost)

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := handlers.NewRouter(cfg, handlers.Handlers{
		Auth:        handlers.NewAuthHandler(db, authService, registerService),
		Projects:    handlers.NewProjectHandler(projectService),
		Members:     handlers.NewMemberHandler(membershipService),
		Invitations: handlers.NewInvitationHandler(invitationService),
		Tasks:       handlers.NewTaskHandler(taskService),
		Tags:        handlers.NewTagHandler(tagService),
		Stats:       handlers.NewStatsHandler(statsService),
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go startTokenCleanup(context.Background(), db, cfg.Auth.TokenSweepEvery)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}

// startTokenCleanup deletes expired refresh tokens on an interval.
func startTokenCleanup(ctx context.Context, db *gorm.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := db.WithContext(ctx).Exec("DELETE FROM tokens WHERE expires_at < ?", time.Now())
			if result.Error != nil {
				log.Printf("token cleanup failed: %v", result.Error)
			} else if result.RowsAffected > 0 {
				log.Printf("token cleanup removed %d expired tokens", result.RowsAffected)
			}
		}
	}
}

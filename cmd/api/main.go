package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-manager/internal/api/http"
	"github.com/spec-kit/task-manager/internal/api/http/handlers"
	"github.com/spec-kit/task-manager/internal/auth"
	"github.com/spec-kit/task-manager/internal/config"
	"github.com/spec-kit/task-manager/internal/events"
	"github.com/spec-kit/task-manager/internal/observability"
	"github.com/spec-kit/task-manager/internal/persistence"
	"github.com/spec-kit/task-manager/internal/repository"
	"github.com/spec-kit/task-manager/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}

	var (
		taskRepo repository.TaskRepository
		userRepo repository.UserRepository
	)
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		taskRepo = repository.NewTaskRepository(pg.PoolHandle())
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		store := repository.NewMemoryStore()
		taskRepo = store.Tasks()
		userRepo = store.Users()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)

	dispatcher := events.NewInMemoryDispatcher()
	var publisher events.Publisher
	if redis.Enabled() {
		publisher = events.NewRedisPublisher(redis.Client, cfg.Redis.EventsChannel)
	}
	service.NewNotificationService(dispatcher, publisher, logger).RegisterHandlers()

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:     userRepo,
		TaskRepo:     taskRepo,
		Hasher:       auth.NewPasswordHasher(cfg.Auth),
		TokenManager: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	queryService := service.NewQueryService(service.QueryDependencies{TaskRepo: taskRepo, UserRepo: userRepo})
	statsService := service.NewStatisticsService(service.StatisticsDependencies{TaskRepo: taskRepo, UserRepo: userRepo})

	metrics := observability.NewMetrics("task_manager")
	loginLimiter, err := httptransport.NewLoginRateLimiter(cfg.Auth.LoginRate, logger)
	if err != nil {
		logger.Fatal("invalid AUTH_LOGIN_RATE", zap.Error(err))
	}

	// Immutable copies params and bodies out of fasthttp's reused buffers.
	app := fiber.New(fiber.Config{AppName: cfg.App.Name, Immutable: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, pg, redis),
		Users:  handlers.NewUsersHandler(userService, queryService, statsService, metrics),
		Tasks: handlers.NewTasksHandler(handlers.TasksHandlerConfig{
			Tasks:       taskService,
			Queries:     queryService,
			Statistics:  statsService,
			DueSoonDays: cfg.Tasks.DueSoonDays,
		}),
		Metrics:      metrics,
		LoginLimiter: loginLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	// Operations run concurrently, so storage is closed only after the
	// HTTP server has drained.
	wait := gfshutdown.GracefulShutdown(ctx, cfg.App.ShutdownTimeout(), map[string]gfshutdown.Operation{
		"task-manager": func(ctx context.Context) error {
			logger.Info("graceful shutdown initiated")
			err := app.ShutdownWithContext(ctx)
			if closeErr := redis.Close(); closeErr != nil {
				logger.Warn("redis close failed", zap.Error(closeErr))
			}
			pg.Close()
			return err
		},
	})

	exitCode := <-wait
	logger.Info("shutdown complete", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}

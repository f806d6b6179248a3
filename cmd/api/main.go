package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/defects-service/internal/access"
	httptransport "github.com/spec-kit/defects-service/internal/api/http"
	"github.com/spec-kit/defects-service/internal/api/http/handlers"
	"github.com/spec-kit/defects-service/internal/auth"
	"github.com/spec-kit/defects-service/internal/config"
	"github.com/spec-kit/defects-service/internal/events"
	"github.com/spec-kit/defects-service/internal/observability"
	"github.com/spec-kit/defects-service/internal/persistence"
	"github.com/spec-kit/defects-service/internal/repository"
	"github.com/spec-kit/defects-service/internal/service"
	"github.com/spec-kit/defects-service/internal/storage"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	defectRepo := repository.NewDefectRepository(pool)
	historyRepo := repository.NewDefectHistoryRepository(pool)
	commentRepo := repository.NewDefectCommentRepository(pool)
	attachmentRepo := repository.NewDefectAttachmentRepository(pool)

	projectAccess := access.NewCachedAccess(
		access.NewProjectAccess(projectRepo, userRepo),
		redis.Client,
		logger,
	)

	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterLogging(dispatcher, logger)

	fileStore := storage.NewFileStore(cfg.Storage.Root)

	authService := service.NewAuthService(*cfg, userRepo)
	projectService := service.NewProjectService(projectRepo, projectAccess)
	defectService := service.NewDefectService(service.DefectDependencies{
		DefectRepo:  defectRepo,
		HistoryRepo: historyRepo,
		Access:      projectAccess,
		Dispatcher:  dispatcher,
	})
	commentService := service.NewCommentService(commentRepo, defectRepo, projectAccess)
	attachmentService := service.NewAttachmentService(attachmentRepo, defectRepo, projectAccess, fileStore)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Projects:       handlers.NewProjectsHandler(projectService),
		Defects:        handlers.NewDefectsHandler(defectService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable/api/swagger"
	"github.com/noah-isme/sma-timetable/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/repository"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/internal/solver"
	"github.com/noah-isme/sma-timetable/pkg/cache"
	"github.com/noah-isme/sma-timetable/pkg/config"
	"github.com/noah-isme/sma-timetable/pkg/database"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly timetable generation, timetable reads and exports.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, timetable cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.CacheTTL, logr, redisClient != nil)

	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	sessionRepo := repository.NewSessionTemplateRepository(db)
	scheduleRepo := repository.NewScheduleItemRepository(db)

	loader := service.NewSnapshotLoader(teacherRepo, classRepo, gradeRepo, curriculumRepo, assignmentRepo, sessionRepo, metrics, logr)
	persister := service.NewSchedulePersister(db, assignmentRepo, scheduleRepo, cacheSvc, metrics, logr)
	generator := service.NewGeneratorService(loader, newEngine(cfg.Solver, logr), persister, metrics, logr, service.GeneratorConfig{LogTail: cfg.Solver.LogTail})

	timetables := service.NewTimetableService(scheduleRepo, classRepo, teacherRepo, subjectRepo, cacheSvc, logr)
	catalog := service.NewCatalogService(db, curriculumRepo, sessionRepo, teacherRepo, assignmentRepo, cacheSvc, validator.New(), logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(timetables, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	tokens := service.NewTokenVerifier(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiry,
	})

	if cfg.Scheduler.Enabled {
		generator.Run(ctx)
		defer generator.Stop()
	}
	go cleanupExports(ctx, exports, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL, logr)

	router := newRouter(cfg, logr, routes{
		metrics:    handler.NewMetricsHandler(metrics, readinessChecks(db, cacheRepo)),
		generator:  handler.NewGeneratorHandler(generator, cfg.APIPrefix),
		timetables: handler.NewTimetableHandler(timetables, exports),
		catalog:    handler.NewCatalogHandler(catalog),
		tokens:     tokens,
		metricsSvc: metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEngine picks the external engine when one is configured and the
// in-process placer otherwise.
func newEngine(cfg config.SolverConfig, logr *zap.Logger) solver.Solver {
	if cfg.EnginePath == "" {
		logr.Info("no engine configured, using in-process placer")
		return solver.GreedySolver{}
	}
	return solver.NewProcessSolver(solver.ProcessConfig{
		EnginePath: cfg.EnginePath,
		EngineArgs: cfg.EngineArgs,
		WorkDir:    cfg.WorkDir,
		Timeout:    cfg.Timeout,
		WaitDelay:  5 * time.Second,
	}, logr)
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository) map[string]handler.ReadinessCheck {
	return map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	}
}

func cleanupExports(ctx context.Context, exports *service.ExportService, interval, ttl time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("files", len(removed)))
			}
		}
	}
}

type routes struct {
	metrics    *handler.MetricsHandler
	generator  *handler.GeneratorHandler
	timetables *handler.TimetableHandler
	catalog    *handler.CatalogHandler
	tokens     internalmiddleware.TokenValidator
	metricsSvc *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(h.metricsSvc))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())

	// Signed download links carry their own authorisation.
	api.GET("/exports/:token", h.timetables.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(h.tokens))

	if cfg.Scheduler.Enabled {
		runs := secured.Group("/generator/runs")
		runs.POST("", admin, h.generator.Start)
		runs.GET("/current", admin, h.generator.Current)
		runs.DELETE("/current", admin, h.generator.Cancel)
	}

	timetables := secured.Group("/timetables")
	timetables.GET("/classes/:id", h.timetables.Class)
	timetables.GET("/teachers/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), internalmiddleware.RoleSelf), h.timetables.Teacher)
	timetables.POST("/classes/:id/exports", h.timetables.Export)

	secured.GET("/metrics/summary", admin, h.metrics.Summary)
	secured.PUT("/curricula", admin, h.catalog.UpsertCurricula)
	secured.PUT("/sessions/:session/availability", admin, h.catalog.UpsertSessionTemplate)
	secured.PUT("/teachers/:id/availability", admin, h.catalog.UpdateTeacherAvailability)
	secured.GET("/assignments", admin, h.catalog.ListAssignments)
	secured.POST("/assignments", admin, h.catalog.CreateAssignment)
	secured.PUT("/assignments", admin, h.catalog.SaveAssignments)
	secured.DELETE("/assignments/:id", admin, h.catalog.DeleteAssignment)

	return r
}

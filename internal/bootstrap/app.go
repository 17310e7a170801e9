package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resume-screening/internal/extract"
	"resume-screening/internal/jobs"
	"resume-screening/internal/pipeline"
	"resume-screening/internal/queue"
	"resume-screening/internal/resumes"
	"resume-screening/internal/scoring"
	"resume-screening/internal/services/health"
	"resume-screening/internal/shared/config"
	"resume-screening/internal/shared/server"
	"resume-screening/internal/shared/server/middleware"
	"resume-screening/internal/shared/storage/db"
	"resume-screening/internal/shared/storage/object"
	localstore "resume-screening/internal/shared/storage/object/local"
	miniostore "resume-screening/internal/shared/storage/object/minio"
	s3store "resume-screening/internal/shared/storage/object/s3"
	"resume-screening/internal/shared/telemetry"
	"resume-screening/internal/users"
)

// Role selects the connection pool profile for Build.
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
)

// App holds shared dependencies for the API and worker processes.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.Store

	Queue  queue.Client
	Inline *queue.InlineClient

	UsersRepo   users.Repo
	JobsRepo    jobs.Repo
	ResumesRepo resumes.Repo

	UsersService   *users.Service
	JobsService    *jobs.Service
	ResumesService *resumes.Service

	Orchestrator *pipeline.Orchestrator
	Runner       *pipeline.Runner
	Sweeper      *pipeline.Sweeper

	UsersHandler   *users.Handler
	JobsHandler    *jobs.Handler
	ResumesHandler *resumes.Handler
	Health         *health.Service

	closers []func() error
}

// Build prepares shared dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	if err := buildQueue(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Health:        app.Health,
		UserHandler:   app.UsersHandler,
		JobHandler:    app.JobsHandler,
		ResumeHandler: app.ResumesHandler,
		RateLimiter:   middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// Close releases queue, cache, and database handles in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			telemetry.Warn("bootstrap.close_failed", map[string]any{"err": err})
		}
	}
	a.closers = nil
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Info("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	defaults := db.DefaultServerOptions()
	if role == RoleWorker {
		defaults = db.DefaultWorkerOptions(cfg.WorkerConcurrency)
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "err": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, cfg.MinIO)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.QueueBackend {
	case "sqs":
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			return fmt.Errorf("QUEUE_BACKEND=sqs requires RA_SQS_QUEUE_URL")
		}
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
	case "asynq":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		app.Redis = rdb
		app.closers = append(app.closers, rdb.Close)
		client, err := queue.NewAsynqClient(cfg.RedisAddr)
		if err != nil {
			return err
		}
		app.Queue = client
		app.closers = append(app.closers, client.Close)
	default:
		inline := queue.NewInlineClient(cfg.WorkerConcurrency)
		app.Queue = inline
		app.Inline = inline
		app.closers = append(app.closers, func() error {
			inline.Close()
			return nil
		})
	}
	return nil
}

func buildServices(app *App) error {
	var userRepo users.Repo
	var jobRepo jobs.Repo
	var resumeRepo resumes.Repo

	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		jobRepo = &jobs.PGRepo{DB: app.DB}
		resumeRepo = &resumes.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		jobRepo = jobs.NewMemoryRepo()
		resumeRepo = resumes.NewMemoryRepo()
	}

	userSvc := users.NewService(userRepo)
	jobSvc := jobs.NewService(jobRepo)
	pcfg := app.Config.Pipeline

	resumeSvc := &resumes.Service{
		Repo:         resumeRepo,
		Jobs:         jobSvc,
		Blobs:        app.Store,
		Queue:        app.Queue,
		QueueBackend: app.Config.QueueBackend,
		MaxRetries:   pcfg.MaxRetries,
	}

	orch := &pipeline.Orchestrator{
		Repo:      resumeRepo,
		Blobs:     app.Store,
		Extractor: extract.NewRegistry(),
		Scorer:    scoring.NewKeywordScorer(),
		Jobs:      jobRepo,
	}
	runner := &pipeline.Runner{
		Orch:    orch,
		Queue:   app.Queue,
		Backend: app.Config.QueueBackend,
		Backoff: pcfg.RetryBackoff,
	}
	sweeper := &pipeline.Sweeper{
		Repo:       resumeRepo,
		Orch:       orch,
		Queue:      app.Queue,
		Backend:    app.Config.QueueBackend,
		StaleAfter: pcfg.StaleAfter,
		Interval:   pcfg.SweepInterval,
	}
	if app.Inline != nil {
		app.Inline.SetHandler(runner.Handle)
	}

	checks := map[string]health.Pinger{}
	if app.DB != nil {
		checks["database"] = app.DB
	}
	if app.Redis != nil {
		checks["redis"] = redisPinger{app.Redis}
	}

	app.UsersRepo = userRepo
	app.JobsRepo = jobRepo
	app.ResumesRepo = resumeRepo
	app.UsersService = userSvc
	app.JobsService = jobSvc
	app.ResumesService = resumeSvc
	app.Orchestrator = orch
	app.Runner = runner
	app.Sweeper = sweeper
	app.UsersHandler = users.NewHandler(userSvc)
	app.JobsHandler = jobs.NewHandler(jobSvc)
	app.ResumesHandler = resumes.NewHandler(resumeSvc, runner)
	app.Health = health.NewService(checks)

	if app.ResumesHandler == nil || app.JobsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/analysis"
	"intake-backend/internal/analysis/httpclient"
	localanalysis "intake-backend/internal/analysis/local"
	"intake-backend/internal/documents"
	"intake-backend/internal/notifications"
	"intake-backend/internal/queue"
	"intake-backend/internal/services/health"
	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/config"
	"intake-backend/internal/shared/lock"
	"intake-backend/internal/shared/server"
	"intake-backend/internal/shared/storage/db"
	"intake-backend/internal/shared/storage/object"
	localstore "intake-backend/internal/shared/storage/object/local"
	miniostore "intake-backend/internal/shared/storage/object/minio"
	s3store "intake-backend/internal/shared/storage/object/s3"
	"intake-backend/internal/uploads"
	"intake-backend/internal/versions"
)

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Store         object.ObjectStore
	Queue         queue.Client
	Locker        lock.Locker
	Issuer        *auth.Issuer
	Health        *health.Service
	Documents     *documents.Service
	Versions      *versions.Manager
	Notifications *notifications.Emitter
	Dispatcher    *analysis.Dispatcher
	Orchestrator  *uploads.Orchestrator

	closers []func() error
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("database", sqlDB.PingContext)
		app.closers = append(app.closers, sqlDB.Close)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}
	if err := buildLocker(ctx, app); err != nil {
		return nil, err
	}
	if app.Issuer, err = auth.NewIssuer(cfg.JWTSecret, cfg.Env, cfg.JWTTTL); err != nil {
		return nil, err
	}
	client, err := buildAnalysisClient(cfg, app.Store)
	if err != nil {
		return nil, err
	}

	buildServices(app, client)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Issuer:          app.Issuer,
		Health:          app.Health,
		UploadHandler:   uploads.NewHandler(app.Orchestrator),
		DocumentHandler: documents.NewHandler(app.Documents),
		VersionHandler:  versions.NewHandler(app.Versions, app.Documents, cfg.MaxUploadBytes),
		AnalysisHandler: analysis.NewHandler(app.Documents, app.Dispatcher),
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("bootstrap: close: %v", err)
		}
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	case "minio":
		if strings.TrimSpace(cfg.MinioEndpoint) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=minio requires MINIO_ENDPOINT and S3_BUCKET")
		}
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.S3Bucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.AnalysisQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.AnalysisQueueURL)
}

func buildLocker(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.RedisURL) == "" {
		app.Locker = lock.NewMemory()
		return nil
	}
	redisLock, err := lock.NewRedis(ctx, app.Config.RedisURL)
	if err != nil {
		if isDevLike(app.Config.Env) {
			log.Printf("bootstrap: redis unavailable; using in-process upload lock: %v", err)
			app.Locker = lock.NewMemory()
			return nil
		}
		return err
	}
	app.Locker = redisLock
	app.Health.Register("redis", redisLock.Ping)
	app.closers = append(app.closers, redisLock.Close)
	return nil
}

func buildAnalysisClient(cfg config.Config, store object.ObjectStore) (analysis.Client, error) {
	if cfg.AnalysisProvider == "http" {
		return httpclient.New(cfg.AnalysisBaseURL, cfg.AnalysisAPIKey, cfg.AnalysisTimeout)
	}
	return localanalysis.New(store), nil
}

func buildServices(app *App, client analysis.Client) {
	var (
		docRepo     documents.Repo
		versionRepo versions.Repo
		noteRepo    notifications.Repo
	)
	if app.DB != nil {
		pgDocs := &documents.PGRepo{DB: app.DB}
		docRepo = pgDocs
		versionRepo = &versions.PGRepo{DB: app.DB}
		noteRepo = &notifications.PGRepo{DB: app.DB}
	} else {
		memDocs := documents.NewMemoryRepo()
		docRepo = memDocs
		versionRepo = versions.NewMemoryRepo(memDocs)
		noteRepo = notifications.NewMemoryRepo()
	}

	app.Documents = documents.NewService(docRepo)
	app.Versions = &versions.Manager{
		Repo:         versionRepo,
		Documents:    app.Documents,
		Store:        app.Store,
		CacheControl: app.Config.CacheControl,
	}
	app.Notifications = notifications.NewEmitter(noteRepo)
	app.Dispatcher = &analysis.Dispatcher{
		Docs:     app.Documents,
		Client:   client,
		Function: app.Config.AnalysisFunction,
		Timeout:  app.Config.AnalysisTimeout,
		Queue:    app.Queue,
	}
	app.Orchestrator = &uploads.Orchestrator{
		Validator:    uploads.Validator{MaxBytes: app.Config.MaxUploadBytes},
		Sessions:     auth.ContextSession{},
		Duplicates:   uploads.DuplicateDetector{Docs: app.Documents},
		Docs:         app.Documents,
		Store:        app.Store,
		Versions:     app.Versions,
		Analysis:     app.Dispatcher,
		Policies:     analysis.NewPolicies(app.Config.BackgroundAnalysis...),
		Notifier:     app.Notifications,
		Locker:       app.Locker,
		CacheControl: app.Config.CacheControl,
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-editor/internal/achievements"
	googleauth "resume-editor/internal/auth"
	"resume-editor/internal/editor"
	"resume-editor/internal/graph"
	"resume-editor/internal/llm"
	"resume-editor/internal/llm/anthropic"
	"resume-editor/internal/llm/gemini"
	"resume-editor/internal/llm/openai"
	"resume-editor/internal/resumes"
	"resume-editor/internal/services/health"
	"resume-editor/internal/sessions"
	"resume-editor/internal/shared/config"
	"resume-editor/internal/shared/server"
	"resume-editor/internal/shared/storage/db"
	"resume-editor/internal/shared/storage/object"
	localstore "resume-editor/internal/shared/storage/object/local"
	s3store "resume-editor/internal/shared/storage/object/s3"
	"resume-editor/internal/shared/telemetry"
	"resume-editor/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Sessions *sessions.Manager

	UsersService        *users.Service
	ResumesService      *resumes.Service
	AchievementsService *achievements.Service
	EditorService       *sessions.Service
}

// Build prepares dependencies and registers every route.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.LLMProvider) == "" {
		cfg.LLMProvider = "none"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	completer, err := BuildCompleter(cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Store: store}
	if err := buildServices(app, completer); err != nil {
		closeDB(sqlDB)
		return nil, err
	}
	return app, nil
}

// Close stops the session sweeper, cancels in-flight completions and
// releases the database pool.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	closeDB(a.DB)
	a.DB = nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		telemetry.Warn("bootstrap.db_close_failed", map[string]any{"error": err.Error()})
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// BuildCompleter selects the completion provider named by cfg. With no
// provider configured the rewriter wraps the placeholder client, so
// underlined runs settle into a failure notice.
func BuildCompleter(cfg config.Config) (editor.Completer, error) {
	prompts, err := llm.LoadPrompts()
	if err != nil {
		return nil, err
	}

	var client llm.Client = llm.PlaceholderClient{}
	switch cfg.LLMProvider {
	case "openai":
		c, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, openai.Options{
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.CompletionTimeout,
		})
		if err != nil {
			return nil, err
		}
		client = llm.WithRetry(c, 0)
	case "anthropic":
		c, err := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel, anthropic.Options{
			Timeout: cfg.CompletionTimeout,
		})
		if err != nil {
			return nil, err
		}
		client = llm.WithRetry(c, 0)
	case "gemini":
		c, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.LLMModel, gemini.Options{
			Timeout: cfg.CompletionTimeout,
		})
		if err != nil {
			return nil, err
		}
		client = llm.WithRetry(c, 0)
	}
	telemetry.Info("bootstrap.completer", map[string]any{
		"provider":       cfg.LLMProvider,
		"model":          cfg.LLMModel,
		"prompt_version": prompts.Version,
	})
	return llm.NewRewriter(client, prompts), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(app *App, completer editor.Completer) error {
	var (
		userRepo     users.Repo
		resumeRepo   resumes.Repo
		achRepo      achievements.Repo
		snapshotRepo sessions.SnapshotRepo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		resumeRepo = &resumes.PGRepo{DB: app.DB}
		achRepo = &achievements.PGRepo{DB: app.DB}
		snapshotRepo = &sessions.PGSnapshotRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		resumeRepo = resumes.NewMemoryRepo()
		achRepo = achievements.NewMemoryRepo()
		snapshotRepo = sessions.NewMemorySnapshotRepo()
	}

	userSvc := users.NewService(userRepo)
	resumeSvc := resumes.NewService(resumeRepo, userSvc)
	achSvc := achievements.NewService(achRepo, resumeSvc)
	userSvc.OnDelete(resumeSvc.DeleteByUser)
	resumeSvc.OnDelete(achSvc.DetachResume)

	schema, err := graph.NewSchema(graph.Services{
		Users:        userSvc,
		Resumes:      resumeSvc,
		Achievements: achSvc,
	})
	if err != nil {
		return fmt.Errorf("graphql schema: %w", err)
	}

	manager := sessions.NewManager(sessions.Options{
		TTL: app.Config.SessionTTL,
		Trigger: editor.TriggerConfig{
			Completer:   completer,
			Timeout:     app.Config.CompletionTimeout,
			MaxInFlight: int64(app.Config.CompletionInFlight),
			Debounce:    app.Config.CompletionDebounce,
			Sanitize:    llm.Sanitize,
		},
	})
	manager.Start()

	editorSvc := &sessions.Service{
		Manager:      manager,
		Store:        app.Store,
		Snapshots:    snapshotRepo,
		Resumes:      resumeSvc,
		Achievements: achSvc,
	}
	if app.DB != nil {
		editorSvc.Commits = &sessions.PGCommitStore{DB: app.DB}
	}

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	).WithGuestClaimer(editorSvc)

	app.UsersService = userSvc
	app.ResumesService = resumeSvc
	app.AchievementsService = achSvc
	app.EditorService = editorSvc
	app.Sessions = manager
	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config: app.Config,
		Health: health.NewService(pinger, manager.Len).Handle,
		Handlers: []server.RouteRegistrar{
			googleAuthSvc,
			users.NewHandler(userSvc),
			graph.NewHandler(schema),
			sessions.NewHandler(editorSvc),
		},
		RateGroups: sessions.RateLimitGroup,
	})
	return nil
}

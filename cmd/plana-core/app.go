package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/ai"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/gitarchive"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/inproc"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/postgres"
	postgresqueue "github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/queue/redis"
	redisadapter "github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/redis"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/secrets"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driven/sqlite"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driving/http"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/config"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driving"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/services"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/runtime"
)

// Queue backends
const (
	queueRedis    = "redis"
	queuePostgres = "postgres"
	queueMemory   = "memory"
)

// stores groups the persistence adapters of one storage driver
type stores struct {
	proposals driven.ProposalStore
	chapters  driven.ChapterStore
	criteria  driven.CriteriaStore
	settings  driven.SettingsStore
	db        http.Pinger
	pg        *postgres.DB // nil unless the driver is postgres
}

// app is the wired process: adapters, services and what must be closed
type app struct {
	runtimeConfig *domain.RuntimeConfig
	runtime       *runtime.Services
	services      http.Services
	queue         driven.TaskQueue
	queueBackend  string
	notifier      driven.Notifier
	hub           *http.Hub
	checks        map[string]http.Pinger

	closers []func() error
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Warning: shutdown step failed: %v", err)
		}
	}
}

// openStores connects the configured storage driver. The schema is applied
// when migrate is set.
func openStores(ctx context.Context, cfg *config.Config, encryptor *secrets.Encryptor, migrate bool) (*stores, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Storage.DatabaseURL,
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Storage.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if migrate {
			if err := db.InitSchema(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("initialize schema: %w", err)
			}
		}
		log.Println("PostgreSQL connected")
		return &stores{
			proposals: postgres.NewProposalStore(db),
			chapters:  postgres.NewChapterStore(db),
			criteria:  postgres.NewCriteriaStore(db),
			settings:  postgres.NewSettingsStore(db, encryptor),
			db:        db,
			pg:        db,
		}, db.Close, nil

	case config.DriverSQLite:
		log.Printf("Opening SQLite database %s...", cfg.Storage.SQLitePath)
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return &stores{
			proposals: sqlite.NewProposalStore(db),
			chapters:  sqlite.NewChapterStore(db),
			criteria:  sqlite.NewCriteriaStore(db),
			settings:  sqlite.NewSettingsStore(db, encryptor),
			db:        db,
		}, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func buildApp(ctx context.Context, cfg *config.Config, mode runMode) (a *app, err error) {
	a = &app{checks: make(map[string]http.Pinger)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	logger := slog.Default()

	encryptor, err := secrets.NewEncryptor([]byte(cfg.Secrets.MasterKey), nil)
	if err != nil {
		return nil, fmt.Errorf("create encryptor: %w", err)
	}

	// ===== Storage =====
	st, closeStore, err := openStores(ctx, cfg, encryptor, true)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	a.checks["store"] = st.db

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Println("Redis connected")
	}

	// ===== Task queue (Redis, then PostgreSQL, then in-process) =====
	switch {
	case redisClient != nil:
		q, err := redisqueue.NewQueue(ctx, redisClient, redisqueue.Options{
			Consumer: fmt.Sprintf("worker-%d", os.Getpid()),
		})
		if err != nil {
			return nil, fmt.Errorf("create task queue: %w", err)
		}
		a.queue, a.queueBackend = q, queueRedis
	case st.pg != nil:
		a.queue, a.queueBackend = postgresqueue.NewQueue(st.pg.DB), queuePostgres
	default:
		a.queue, a.queueBackend = inproc.NewQueue(0), queueMemory
	}
	a.closers = append(a.closers, a.queue.Close)
	a.checks["queue"] = a.queue
	log.Printf("Using %s task queue", a.queueBackend)

	// ===== Distributed lock =====
	var lock driven.DistributedLock
	switch {
	case redisClient != nil:
		lock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis distributed lock")
	case st.pg != nil:
		lock = postgres.NewAdvisoryLock(st.pg)
		log.Println("Using PostgreSQL advisory lock")
	default:
		lock = inproc.NewLock()
		log.Println("Using in-process lock")
	}
	a.checks["lock"] = lock

	// ===== Notifications =====
	if mode.servesAPI() {
		a.hub = http.NewHub(cfg.Server.CORSOrigins, logger)
	}
	switch {
	case redisClient != nil:
		a.notifier = redisadapter.NewNotifier(redisClient)
		if a.hub != nil {
			startSubscriber(ctx, redisClient, a.hub, logger)
		}
	case a.hub != nil:
		a.notifier = a.hub
	default:
		log.Println("Warning: no notification channel, task notifications are dropped")
	}

	// ===== History archive =====
	var archive driven.HistoryArchive
	if cfg.Archive.Dir != "" {
		if err := os.MkdirAll(cfg.Archive.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
		archive = gitarchive.New(cfg.Archive.Dir, cfg.Archive.Author)
		log.Printf("Archiving chapter history under %s", cfg.Archive.Dir)
	}

	// ===== Runtime and generator =====
	a.runtimeConfig = domain.NewRuntimeConfig(cfg.Storage.Driver, a.queueBackend)
	a.runtime = runtime.NewServices(a.runtimeConfig)

	factory, err := ai.NewFactory(logger)
	if err != nil {
		return nil, fmt.Errorf("create generator factory: %w", err)
	}
	a.closers = append(a.closers, a.runtime.Close)

	retry := services.DefaultRetryPolicy()
	retry.InitialDelay = cfg.Generation.InitialBackoff
	retry.MaxAttempts = cfg.Generation.MaxAttempts
	retry.Logger = logger

	history := services.NewHistoryLog(services.HistoryLogConfig{
		Chapters: st.chapters,
		Archive:  archive,
		Logger:   logger,
	})

	settingsService := services.NewSettingsService(st.settings, factory, a.runtime, logger)
	services.RestoreGenerator(ctx, st.settings, factory, a.runtime, logger)
	seedAISettings(ctx, cfg.AI, a.runtime, settingsService)

	a.services = http.Services{
		Proposals: services.NewProposalService(st.proposals, st.chapters, history, logger),
		Editor: services.NewEditorService(services.EditorConfig{
			Proposals:   st.proposals,
			Chapters:    st.chapters,
			History:     history,
			Lock:        lock,
			Notifier:    a.notifier,
			Services:    a.runtime,
			Retry:       retry,
			Logger:      logger,
			Debounce:    cfg.Editor.Debounce,
			SavedWindow: cfg.Editor.SavedWindow,
			LockTTL:     cfg.Generation.LockTTL,
		}),
		Scoring: services.NewScoringService(services.ScoringConfig{
			Proposals: st.proposals,
			Chapters:  st.chapters,
			Criteria:  st.criteria,
			Services:  a.runtime,
			Retry:     retry,
			Logger:    logger,
		}),
		Generation: services.NewGenerationService(services.GenerationConfig{
			Proposals:    st.proposals,
			Chapters:     st.chapters,
			History:      history,
			Lock:         lock,
			Queue:        a.queue,
			Notifier:     a.notifier,
			Services:     a.runtime,
			Retry:        retry,
			Logger:       logger,
			ChapterPause: cfg.Generation.ChapterPause,
			LockTTL:      cfg.Generation.LockTTL,
		}),
		Settings: settingsService,
	}
	return a, nil
}

// startSubscriber forwards notifications published by any process to the
// local websocket hub
func startSubscriber(ctx context.Context, client *redis.Client, hub *http.Hub, logger *slog.Logger) {
	sub := redisadapter.NewSubscriber(client, hub, logger)
	go func() {
		if err := sub.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification subscriber stopped", "error", err)
		}
	}()
}

// seedAISettings installs the configured provider keys when nothing was
// saved through the API yet
func seedAISettings(ctx context.Context, ai config.AIConfig, rt *runtime.Services, settings driving.SettingsService) {
	if !ai.HasKeys() || rt.Generator() != nil {
		return
	}

	provider := domain.AIProvider(ai.Provider)
	tone := domain.Tone(ai.Tone)
	req := driving.UpdateAISettingsRequest{Provider: &provider, Tone: &tone}
	if ai.GeminiAPIKey != "" {
		req.Gemini = &driving.ProviderInput{APIKey: ai.GeminiAPIKey, Model: ai.GeminiModel}
	}
	if ai.OpenAIAPIKey != "" {
		req.OpenAI = &driving.ProviderInput{APIKey: ai.OpenAIAPIKey, Model: ai.OpenAIModel, BaseURL: ai.OpenAIBaseURL}
	}

	status, err := settings.UpdateAISettings(ctx, req)
	if err != nil {
		log.Printf("Warning: configured AI provider rejected: %v (generation disabled)", err)
		return
	}
	log.Printf("AI settings seeded from configuration: provider=%s, configured=%t", status.Provider, status.Configured)
}

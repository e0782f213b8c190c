// Package serverrunner runs the dashboard API server
package serverrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/safety-observer/internal/api"
	"github.com/sadewadee/safety-observer/internal/api/handlers"
	"github.com/sadewadee/safety-observer/internal/archive"
	"github.com/sadewadee/safety-observer/internal/cache"
	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/events"
	"github.com/sadewadee/safety-observer/internal/repository/postgres"
	"github.com/sadewadee/safety-observer/internal/repository/sqlite"
	"github.com/sadewadee/safety-observer/internal/service"
	"github.com/sadewadee/safety-observer/internal/sweeper"
	"github.com/sadewadee/safety-observer/runner"
)

// DefaultSQLitePath is used when no DSN is configured
const DefaultSQLitePath = "safety.db"

// store is the repository set shared by both database backends
type store struct {
	observations domain.ObservationRepository
	operators    domain.OperatorRepository
	profiles     domain.ProfileRepository
	sessions     domain.SessionRepository
}

// ServerRunner runs the API server with its background workers
type ServerRunner struct {
	cfg        *runner.Config
	db         *sql.DB
	srv        *http.Server
	cache      cache.Cache
	publisher  events.Publisher
	subscriber events.Subscriber
	sweeper    *sweeper.Sweeper
}

// New opens every dependency and builds the HTTP server
func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	if cfg.Dsn == "" {
		cfg.Dsn = DefaultSQLitePath
	}

	ctx := context.Background()

	db, repos, err := openStore(ctx, cfg.Dsn)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		log.Printf("[Server] using question catalog %s (version %d)", cfg.CatalogFile, cat.Version())
	}

	c := openCache(cfg)

	var (
		publisher  events.Publisher = events.NoopPublisher{}
		subscriber events.Subscriber
	)
	if cfg.RabbitMQURL != "" {
		mq, err := events.NewRabbitMQ(events.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Printf("[Server] WARNING: RabbitMQ unavailable, events disabled: %v", err)
		} else {
			log.Println("[Server] publishing events to RabbitMQ")
			publisher = mq
			subscriber = mq
		}
	}

	var archiver archive.Archiver = archive.Disabled{}
	if cfg.S3Bucket != "" {
		s3a, err := archive.NewS3Archiver(ctx, archive.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.AwsRegion,
			AccessKey: cfg.AwsAccessKey,
			SecretKey: cfg.AwsSecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Printf("[Server] WARNING: S3 archival disabled: %v", err)
		} else {
			archiver = s3a
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("[Server] WARNING: unknown timezone %q, using local time: %v", cfg.Timezone, err)
		loc = time.Local
	}

	// Services
	authSvc := service.NewAuthService(repos.profiles, repos.sessions, cfg.SessionTTL)
	userSvc := service.NewUserService(repos.profiles, repos.sessions)
	observationSvc := service.NewObservationService(repos.observations, c, publisher)
	statsSvc := service.NewStatsService(repos.observations, cat, c, service.StatsConfig{
		Timeout: cfg.StatsTimeout,
		RowCap:  cfg.RowCap,
	})
	operatorSvc := service.NewOperatorService(repos.operators, c, publisher)
	exportSvc := service.NewExportService(repos.observations, cat, archiver, runner.Telemetry(), loc)

	if cfg.AdminObserverID != "" && cfg.AdminPassword != "" {
		admin, err := userSvc.EnsureAdmin(ctx, cfg.AdminObserverID, cfg.AdminPassword)
		if err != nil {
			closeAll(db, c, publisher)
			return nil, fmt.Errorf("failed to bootstrap administrator: %w", err)
		}
		log.Printf("[Server] administrator ready: %s", admin.ObserverID)
	}

	checks := map[string]handlers.Pinger{
		"database": db,
		"cache":    handlers.PingFunc(c.Ping),
	}

	router := api.NewRouter(api.Handlers{
		Auth:         handlers.NewAuthHandler(authSvc, userSvc),
		Catalog:      handlers.NewCatalogHandler(cat),
		Observations: handlers.NewObservationHandler(observationSvc),
		Stats:        handlers.NewStatsHandler(statsSvc),
		Exports:      handlers.NewExportHandler(exportSvc, statsSvc),
		Operators:    handlers.NewOperatorHandler(operatorSvc),
		Users:        handlers.NewUserHandler(userSvc),
		Health:       handlers.NewHealthHandler(runner.Version, checks),
	}, authSvc)
	if cfg.StaticFolder != "" {
		router.WithStatic(cfg.StaticFolder)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Setup(cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &ServerRunner{
		cfg:        cfg,
		db:         db,
		srv:        srv,
		cache:      c,
		publisher:  publisher,
		subscriber: subscriber,
		sweeper:    sweeper.New(repos.sessions, cfg.SweepInterval),
	}, nil
}

// Run starts the server and background workers and blocks until ctx is done
// or one of them fails.
func (s *ServerRunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return s.sweeper.Run(ctx)
	})

	if s.subscriber != nil {
		egroup.Go(func() error {
			return s.subscribe(ctx)
		})
	}

	egroup.Go(func() error {
		return s.startServer(ctx)
	})

	return egroup.Wait()
}

// Close releases the database, cache and broker connections
func (s *ServerRunner) Close(_ context.Context) error {
	return closeAll(s.db, s.cache, s.publisher)
}

func (s *ServerRunner) startServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] error shutting down server: %v", err)
		}
	}()

	log.Printf("[Server] API server starting on http://localhost%s", s.cfg.Addr)
	if s.cfg.IsPostgres() {
		log.Printf("[Server] using PostgreSQL database")
	} else {
		log.Printf("[Server] using SQLite database: %s", s.cfg.Dsn)
	}
	log.Printf("[Server] API endpoints available at /api/v1/")

	err := s.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// subscribe drops cached dashboards whenever another instance changes data
func (s *ServerRunner) subscribe(ctx context.Context) error {
	err := s.subscriber.Subscribe(ctx, func(ctx context.Context, ev events.Event) error {
		service.InvalidateCache(ctx, s.cache, "Events", invalidatedBy(ev.Type)...)
		return nil
	})
	if err != nil {
		// Losing the subscription only costs cache freshness
		log.Printf("[Server] WARNING: event subscription ended: %v", err)
	}

	return nil
}

// invalidatedBy returns the cache prefixes an event type makes stale
func invalidatedBy(eventType string) []string {
	switch eventType {
	case events.OperatorsChanged:
		return []string{cache.KeyPrefixOperators}
	default:
		return []string{cache.KeyPrefixStats, cache.KeyPrefixFilterOption}
	}
}

func openStore(ctx context.Context, dsn string) (*sql.DB, *store, error) {
	if runner.IsPostgresDSN(dsn) {
		db, err := postgres.OpenConnection(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if _, err := postgres.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		repos := postgres.NewRepositories(db)

		return db, &store{
			observations: repos.Observations,
			operators:    repos.Operators,
			profiles:     repos.Profiles,
			sessions:     repos.Sessions,
		}, nil
	}

	db, err := sqlite.OpenConnection(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := sqlite.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := sqlite.NewRepositories(db)

	return db, &store{
		observations: repos.Observations,
		operators:    repos.Operators,
		profiles:     repos.Profiles,
		sessions:     repos.Sessions,
	}, nil
}

// openCache prefers Redis and falls back to an in-process cache
func openCache(cfg *runner.Config) cache.Cache {
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		log.Println("[Server] Redis not configured, using in-memory cache")
		return cache.NewMemoryCache(time.Minute)
	}

	rc, err := cache.NewRedisCache(cache.Config{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[Server] WARNING: Redis unavailable, using in-memory cache: %v", err)
		return cache.NewMemoryCache(time.Minute)
	}

	log.Println("[Server] using Redis cache")

	return rc
}

func closeAll(db *sql.DB, c cache.Cache, publisher events.Publisher) error {
	var errs []error

	if publisher != nil {
		errs = append(errs, publisher.Close())
	}

	if c != nil {
		errs = append(errs, c.Close())
	}

	if db != nil {
		errs = append(errs, db.Close())
	}

	return errors.Join(errs...)
}

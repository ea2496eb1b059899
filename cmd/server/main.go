package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	web "courseplayer/internal/adapters/http"
	"courseplayer/internal/adapters/http/perf"
	"courseplayer/internal/adapters/lms"
	"courseplayer/internal/adapters/storage"
	accountStore "courseplayer/internal/adapters/storage/account"
	courseStore "courseplayer/internal/adapters/storage/course"
	curriculumStore "courseplayer/internal/adapters/storage/curriculum"
	enrollmentStore "courseplayer/internal/adapters/storage/enrollment"
	postStore "courseplayer/internal/adapters/storage/post"
	progressStore "courseplayer/internal/adapters/storage/progress"
	quizStore "courseplayer/internal/adapters/storage/quiz"
	"courseplayer/internal/adapters/telemetry"
	"courseplayer/internal/application/orchestrators"
	"courseplayer/internal/application/projections"
	"courseplayer/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// devAdminPassword is only used outside production when none is configured.
const devAdminPassword = "courseplayer-admin"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "error", err.Error())
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	if err := run(cfg); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, version, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing_shutdown_failed", "error", err.Error())
		}
	}()

	// WAL mode, foreign keys and a busy timeout for concurrent readers.
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.MigrateDB(db); err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	accounts := accountStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		Accounts:    accounts,
		Courses:     courseStore.NewSQLiteStore(timedDB),
		Enrollments: enrollmentStore.NewSQLiteStore(timedDB),
		Progress:    progressStore.NewSQLiteStore(timedDB),
		Host:        lms.NewHost(timedDB, cfg.BaseURL),
		DB:          timedDB,
	}

	adminPassword := cfg.AdminPassword
	if adminPassword == "" {
		adminPassword = devAdminPassword
		slog.Warn("admin_password_default", "email", cfg.AdminEmail)
	}
	if err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.CreateAccountDeps{AccountStore: accounts}, cfg.AdminEmail, adminPassword); err != nil {
		return err
	}

	if cfg.SeedDemo {
		if err := orchestrators.ExecuteSeedDemoCatalog(ctx, orchestrators.SeedDemoDeps{
			Posts:     postStore.NewSQLiteStore(timedDB),
			Curricula: curriculumStore.NewSQLiteStore(timedDB),
			Quizzes:   quizStore.NewSQLiteStore(timedDB),
		}, time.Now()); err != nil {
			return err
		}
	}

	// CSRF origin checks compare hosts, not full URLs.
	var trusted []string
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		trusted = append(trusted, u.Host)
	}
	handler := web.NewMux(web.Options{
		StaticDir:       cfg.StaticDir,
		TemplatesDir:    cfg.TemplatesDir,
		PlayerTemplate:  cfg.PlayerTemplate,
		OverrideEnabled: cfg.OverrideEnabled,
		Debug:           cfg.Debug,
		Secure:          cfg.IsProduction(),
		CSRFKey:         cfg.CSRFKeyBytes(),
		TrustedOrigins:  trusted,
		RateLimit:       cfg.RateLimit,
		SlowRequestMs:   cfg.SlowRequestMs,
		Version:         version,
		Player: projections.PlayerOptions{
			Currency:      cfg.Currency,
			GuestCheckout: cfg.GuestCheckout,
			Debug:         cfg.Debug,
		},
	}, stores, collector)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"schema", storage.LatestSchemaVersion(),
			"player_override", cfg.OverrideEnabled,
		)
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

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"moneyclip/internal/auth"
	"moneyclip/internal/config"
	"moneyclip/internal/handlers/backup"
	"moneyclip/internal/handlers/calculation"
	"moneyclip/internal/handlers/planning"
	"moneyclip/internal/models"
	"moneyclip/internal/services/cashevents"
	"moneyclip/internal/services/clip"
	"moneyclip/internal/services/notify"
	"moneyclip/internal/services/pgstore"
	"moneyclip/internal/services/planstore"
	"moneyclip/internal/services/scheduler"
	"moneyclip/internal/services/storage"
	"moneyclip/internal/version"
)

// dependencies are the services the router and scheduler share
type dependencies struct {
	cfg       *config.Config
	log       *logrus.Entry
	storage   *storage.Storage // nil for the postgres backend
	plans     *planstore.Store // nil for the postgres backend
	db        *sql.DB
	users     scheduler.UserLister
	clip      *clip.Service
	auth      *auth.Authenticator
	scheduler *scheduler.Scheduler
}

var deps *dependencies

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	if err := SetupDependencies(cfg); err != nil {
		logrus.Fatalf("startup failed: %v", err)
	}
	log := deps.log

	info := version.Get()
	log.WithField("version", info.String()).Info("starting moneyclip")
	if w := info.Warning(); w != "" {
		log.Warn(w)
	}

	if deps.storage != nil && deps.storage.IsEncrypted() && !deps.storage.IsUnlocked() {
		if err := unlockInteractive(deps.storage); err != nil {
			log.WithError(err).Warn("data directory is locked; planning requests will fail until restarted with CLIP_PASSWORD")
		}
	}

	if deps.scheduler != nil {
		if err := deps.scheduler.Start(cfg.SnapshotSchedule); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.ListenAddr,
			"backend": cfg.Backend,
			"auth":    deps.auth.Enabled(),
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if deps.scheduler != nil {
		deps.scheduler.Stop()
	}
	if deps.db != nil {
		deps.db.Close()
	}
}

// SetupDependencies builds the storage backend, services and scheduler
// described by cfg
func SetupDependencies(cfg *config.Config) error {
	logger := cfg.NewLogger()
	log := logrus.NewEntry(logger)

	d := &dependencies{
		cfg:  cfg,
		log:  log,
		auth: auth.New(cfg.JWTSecret, cfg.DefaultUser, log),
	}

	var (
		source    cashevents.DataSource
		snapshots clip.SnapshotStore
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		repo := pgstore.NewRepository(db, log)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return err
		}
		d.db = db
		source, snapshots, d.users = repo, repo, repo

	default:
		st, err := storage.New(cfg.DataDirectory, log)
		if err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}
		if st.IsEncrypted() && cfg.Password != "" {
			if err := st.Unlock(cfg.Password); err != nil {
				return fmt.Errorf("unlock data directory: %w", err)
			}
		}
		plans := planstore.New(st, log)
		d.storage, d.plans = st, plans
		source, snapshots, d.users = plans, plans, plans
	}

	d.clip = clip.NewService(source, cfg.TimelineMaxDays, log, clip.WithSnapshots(snapshots))

	if cfg.SnapshotSchedule != "" {
		var alerter scheduler.Alerter
		if cfg.AlertsEnabled() {
			alerter = notify.NewSender(notify.SMTPConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				From:     cfg.AlertFrom,
				To:       cfg.AlertTo,
			}, log)
		}
		d.scheduler = scheduler.New(d.clip, d.users, alerter, models.NewMoney(cfg.AlertThreshold), log)
	}

	deps = d
	return nil
}

// SetupRouter builds the HTTP router over the current dependencies
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: deps.log, NoColor: true}))
	r.Use(middleware.Recoverer)

	status := backup.New(deps.plans, deps.storage, deps.cfg.Backend, deps.log)

	r.Route("/api", func(r chi.Router) {
		status.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(deps.auth.Middleware)

			calculation.New(deps.clip, deps.log).RegisterRoutes(r)
			if deps.plans != nil {
				planning.New(deps.plans, deps.log).RegisterRoutes(r)
			}
			status.RegisterRoutes(r)
		})
	})

	return r
}

// unlockInteractive asks for the data password when stdin is a terminal
func unlockInteractive(st *storage.Storage) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("encrypted data directory and no CLIP_PASSWORD set")
	}
	fmt.Fprint(os.Stderr, "Data password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	return st.Unlock(string(password))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/oauth"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/timesheet-backend-go/internal/service/auth"
	serviceTimesheet "github.com/cmlabs-hris/timesheet-backend-go/internal/service/timesheet"
	serviceUser "github.com/cmlabs-hris/timesheet-backend-go/internal/service/user"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, closeLog := logger.New(logger.Options{
		App:     "timesheet-api",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		File:    cfg.App.LogFile,
	})
	defer closeLog.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	userRepo := postgresql.NewUserRepository(db)
	timesheetRepo := postgresql.NewTimesheetRepository(db)
	txManager := postgresql.NewTxManager(db)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("initializing jwt service: %w", err)
	}
	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("initializing email service: %w", err)
	}
	hub := sse.NewHub()

	authService := serviceAuth.NewAuthService(userRepo, JWTService)
	userService := serviceUser.NewUserService(userRepo)
	timesheetService := serviceTimesheet.NewTimesheetService(
		timesheetRepo,
		userRepo,
		txManager,
		hub,
		emailService,
		serviceTimesheet.WithTimeout(cfg.Database.Timeout),
		serviceTimesheet.WithFrontendURL(cfg.App.FrontendURL),
	)

	var googleService oauth.GoogleService
	if cfg.OAuth2Google.Enabled() {
		googleService = oauth.NewGoogleService(cfg.OAuth2Google)
	} else {
		slog.Info("google sign-in disabled, CLIENT_ID not set")
	}

	secureCookies := cfg.App.Env == "production"
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         log,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			RequestTimeout: cfg.App.RequestTimeout,
		},
		JWTService,
		appHTTP.NewAuthHandler(authService, googleService, cfg.App.FrontendURL, secureCookies),
		appHTTP.NewUserHandler(userService),
		appHTTP.NewTimesheetHandler(timesheetService),
		appHTTP.NewEventHandler(authService, JWTService, hub),
	)

	scheduler := cron.NewScheduler()
	cron.NewReminderJobs(timesheetService, cfg.Cron.PendingReminderWeekday).
		RegisterJobs(scheduler, cfg.Cron.PendingReminderInterval)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// end open event streams so Shutdown does not wait on them
	server.RegisterOnShutdown(hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown timed out, closing connections", "error", err)
			return server.Close()
		}
		return nil
	})

	return g.Wait()
}

package http

import (
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timesheet-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// RequestTimeout bounds every API request except the event stream.
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, authHandler AuthHandler, userHandler UserHandler, timesheetHandler TimesheetHandler, eventHandler EventHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(middleware.Metrics)
	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// SSE stream authenticates with its own query token and must not time out.
		r.Get("/events", eventHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(timeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.Login)
				r.Get("/oauth/google", authHandler.LoginWithGoogle)
				r.Get("/oauth/callback/google", authHandler.OAuthCallbackGoogle)
			})

			// Requires authentication
			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

				r.Post("/auth/change-password", authHandler.ChangePassword)
				r.Post("/events/token", eventHandler.Token)

				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
				})

				r.Route("/timesheet-entries", func(r chi.Router) {
					r.Get("/", timesheetHandler.List)
					r.Post("/", timesheetHandler.Create)
					r.Get("/week", timesheetHandler.Week)
					r.Get("/pending", timesheetHandler.Pending)

					// Admin only
					r.With(middleware.AdminOnly).Get("/export", timesheetHandler.Export)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", timesheetHandler.Get)
						r.Put("/", timesheetHandler.Update)
						r.Delete("/", timesheetHandler.Delete)
						r.Post("/submit", timesheetHandler.Submit)
						r.Post("/clear", timesheetHandler.Clear)
						r.With(middleware.AdminOnly).Put("/status", timesheetHandler.UpdateStatus)
					})
				})
			})
		})
	})

	return r
}

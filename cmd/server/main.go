package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/event"
	"github.com/yourorg/taskboard/internal/featureflags"
	"github.com/yourorg/taskboard/internal/handler"
	"github.com/yourorg/taskboard/internal/infrastructure/logger"
	"github.com/yourorg/taskboard/internal/infrastructure/redis"
	"github.com/yourorg/taskboard/internal/notification"
	"github.com/yourorg/taskboard/internal/observability/metrics"
	"github.com/yourorg/taskboard/internal/observability/tracing"
	"github.com/yourorg/taskboard/internal/repository"
	"github.com/yourorg/taskboard/internal/security/audit"
	"github.com/yourorg/taskboard/internal/security/auth"
	"github.com/yourorg/taskboard/internal/security/middleware"
	"github.com/yourorg/taskboard/internal/security/ratelimit"
	"github.com/yourorg/taskboard/internal/service"
	"github.com/yourorg/taskboard/pkg/cache"
	"github.com/yourorg/taskboard/pkg/config"
	"github.com/yourorg/taskboard/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting taskboard server",
		slog.String("environment", cfg.Environment),
		slog.String("version", version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
		ServiceName:    "taskboard",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		SampleRatio:    0.25,
	})
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Postgres and apply migrations
	dbCfg := &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}
	pool, err := database.NewConnectionPool(ctx, dbCfg, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(dbCfg, cfg.MigrationsPath); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	taskRepo := repository.NewPostgresTaskRepository(pool.GetDB(), log)
	tokenRepo := repository.NewRedisTokenRepository(redisClient, log)

	// 7. Initialize event dispatcher and mail listeners
	dispatcher := event.NewDispatcher(log, cfg.EventQueueSize)
	mailer := notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.MailFrom, log)

	dispatcher.On(domain.EventTaskUpdated, notification.NewTaskUpdatedListener(userRepo, mailer, log))
	dispatcher.On(domain.EventTaskDeleted, notification.NewTaskDeletedListener(userRepo, mailer, log))
	if featureflags.Enabled(featureflags.NotifyOnCreate) {
		dispatcher.On(domain.EventTaskCreated, notification.NewTaskCreatedListener(userRepo, mailer, log))
	}

	var eventsHandler *handler.EventsHandler
	if featureflags.Enabled(featureflags.EventStream) {
		eventsHandler = handler.NewEventsHandler(log, cfg.CORSAllowedOrigins)
		dispatcher.On(domain.EventTaskCreated, eventsHandler)
		dispatcher.On(domain.EventTaskUpdated, eventsHandler)
		dispatcher.On(domain.EventTaskDeleted, eventsHandler)
	}

	go dispatcher.Start(ctx)

	// 8. Initialize services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "taskboard")
	authService := service.NewAuthService(
		userRepo,
		tokenRepo,
		tokenManager,
		time.Duration(cfg.TokenTTLMinutes)*time.Minute,
		log,
	)
	taskService := service.NewTaskService(taskRepo, userRepo, dispatcher, log)

	// 9. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userRepo, log)
	taskHandler := handler.NewTaskHandler(taskService, userRepo, log)

	// 9a. Initialize security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)
	auditLogger := audit.NewLogger(log)
	userCache := cache.New()

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/users/register", authHandler.Register)
	mux.HandleFunc("POST /v1/users/login", authHandler.Login)
	mux.HandleFunc("GET /v1/users", userHandler.List)
	mux.HandleFunc("GET /v1/users/tasks", taskHandler.ListAll)
	mux.HandleFunc("GET /v1/users/{user}/tasks", taskHandler.ListForUser)
	mux.HandleFunc("POST /v1/users/{user}/tasks", taskHandler.Create)
	mux.HandleFunc("GET /v1/users/{user}/tasks/{task}", taskHandler.Show)
	mux.HandleFunc("PUT /v1/users/{user}/tasks/{task}", taskHandler.Update)
	mux.HandleFunc("DELETE /v1/users/{user}/tasks/{task}", taskHandler.Destroy)
	mux.HandleFunc("POST /v1/users/{user}/tasks/{task}/complete", taskHandler.Complete)
	if eventsHandler != nil {
		mux.Handle("GET /v1/events", eventsHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints (no auth required)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		rctx, rcancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer rcancel()
		if err := pool.Health(rctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database not ready"))
			return
		}
		if err := redisClient.Ping(rctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("redis not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> content type -> auth -> rate limit -> audit
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.ValidateJSONContentType(log)(
				middleware.AuthMiddleware(authService, userCache, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.RateLimitMiddleware(rateLimiter, log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "taskboard"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "bearer"),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Int("rate_limit_window_seconds", cfg.RateLimitWindowSeconds),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop event dispatcher
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability.
// The id is stamped through the audit package so audit entries pick it up.
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

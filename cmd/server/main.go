package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/events"
	"github.com/yourorg/workforce/internal/featureflags"
	"github.com/yourorg/workforce/internal/handler"
	"github.com/yourorg/workforce/internal/infrastructure/logger"
	"github.com/yourorg/workforce/internal/infrastructure/redis"
	"github.com/yourorg/workforce/internal/observability/metrics"
	"github.com/yourorg/workforce/internal/observability/tracing"
	"github.com/yourorg/workforce/internal/repository"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/audit"
	"github.com/yourorg/workforce/internal/security/auth"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/security/ratelimit"
	"github.com/yourorg/workforce/internal/service"
	"github.com/yourorg/workforce/internal/worker"
	"github.com/yourorg/workforce/pkg/cache"
	"github.com/yourorg/workforce/pkg/config"
	"github.com/yourorg/workforce/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting workforce server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "workforce", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// 4. Storage: Postgres by default, in-memory behind a flag for local work
	var (
		db        *sql.DB
		ledger    domain.LedgerRepository
		positions domain.PositionRepository
		persons   domain.PersonRepository
		roles     domain.DepartmentRoleRepository
		users     domain.UserRepository
	)
	if featureflags.Enabled("memory_store") {
		log.Warn("running on in-memory store; data will not survive a restart")
		store := repository.NewMemStore()
		ledger = store.Ledger()
		positions = store.Positions()
		persons = store.Persons()
		roles = store.Roles()
		users = store.Users()
	} else {
		pool, err := database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.DatabaseHost,
			Port:     cfg.DatabasePort,
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		db = pool.GetDB()

		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", slog.String("error", err.Error()))
			os.Exit(1)
		}

		ledger = repository.NewPostgresLedgerRepository(db, log)
		positions = repository.NewPostgresPositionRepository(db, log)
		persons = repository.NewPostgresPersonRepository(db, log)
		roles = repository.NewPostgresDepartmentRoleRepository(db, log)
		users = repository.NewPostgresUserRepository(db, log)
	}

	// 5. Redis cache: optional, the dashboard degrades without it
	var redisClient *redis.Client
	if rc, err := redis.NewClient(cfg.RedisURL); err != nil {
		log.Warn("redis unavailable, dashboard cache disabled", slog.String("error", err.Error()))
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	// 6. Services
	hub := events.NewHub(log)
	employmentService := service.NewEmploymentService(ledger, positions, persons, hub, log)
	hierarchyService := service.NewHierarchyService(positions, ledger, persons, cache.New(), log)
	orgService := service.NewOrgService(positions, log)
	personService := service.NewPersonService(persons, log)
	deptRoleService := service.NewDeptRoleService(roles, persons, log)
	dashboardService := service.NewDashboardService(ledger, positions, persons, users, redisClient, log)
	employmentService.SetCacheInvalidator(dashboardService)

	// 7. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "workforce")
	authService := service.NewAuthService(users, persons, ledger, tokenManager, log)
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Handlers
	employmentHandler := handler.NewEmploymentHandler(employmentService, authService, authz, log)
	orgHandler := handler.NewOrgHandler(orgService, employmentService, authz, log)
	hierarchyHandler := handler.NewHierarchyHandler(hierarchyService, authz, log)
	personHandler := handler.NewPersonHandler(personService, authz, log)
	deptRoleHandler := handler.NewDeptRoleHandler(deptRoleService, authz, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, authz, log)
	authHandler := handler.NewAuthHandler(authService, rateLimiter, authz, log)
	eventsHandler := handler.NewEventsHandler(hub, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(db, redisClient, log)

	// 9. Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("GET /api/accounts/pending", authHandler.PendingAccounts)

	mux.HandleFunc("POST /api/employments", employmentHandler.Create)
	mux.HandleFunc("GET /api/employments", employmentHandler.List)
	mux.HandleFunc("GET /api/employments/{id}", employmentHandler.Get)
	mux.HandleFunc("POST /api/employments/{id}/status", employmentHandler.ChangeStatus)
	mux.HandleFunc("POST /api/employments/{id}/terminate", employmentHandler.Terminate)
	mux.HandleFunc("DELETE /api/employments/{id}", employmentHandler.Delete)
	mux.HandleFunc("GET /api/employments/{id}/history", employmentHandler.History)

	mux.HandleFunc("POST /api/departments", orgHandler.CreateDepartment)
	mux.HandleFunc("GET /api/departments", orgHandler.ListDepartments)
	mux.HandleFunc("POST /api/job-titles", orgHandler.CreateJobTitle)
	mux.HandleFunc("POST /api/positions", orgHandler.CreatePosition)
	mux.HandleFunc("GET /api/positions", orgHandler.ListPositions)
	mux.HandleFunc("GET /api/positions/{id}", orgHandler.GetPosition)
	mux.HandleFunc("GET /api/positions/{id}/vacancies", orgHandler.Vacancies)
	mux.HandleFunc("PUT /api/positions/{id}/managers", orgHandler.SetReportingLines)

	mux.HandleFunc("POST /api/people", personHandler.Create)
	mux.HandleFunc("GET /api/people", personHandler.List)
	mux.HandleFunc("GET /api/people/{id}", personHandler.Get)
	mux.HandleFunc("GET /api/people/{id}/org-chart", hierarchyHandler.OrgChart)
	mux.HandleFunc("GET /api/people/{id}/department-roles", deptRoleHandler.ListByPerson)
	mux.HandleFunc("GET /api/positions/{id}/supervisor", hierarchyHandler.Supervisor)
	mux.HandleFunc("GET /api/departments/{id}/manager", hierarchyHandler.DepartmentManager)
	mux.HandleFunc("GET /api/departments/{id}/roles", deptRoleHandler.ListByDepartment)

	mux.HandleFunc("POST /api/department-roles", deptRoleHandler.Assign)
	mux.HandleFunc("GET /api/managers", deptRoleHandler.CurrentManagers)

	mux.Handle("GET /api/dashboard", dashboardHandler)
	mux.Handle("GET /ws/events", eventsHandler)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> audit -> CORS+mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.ValidateJSONContentType(log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)
	rootWithTracing := otelhttp.NewHandler(rootHandler, "workforce.http")

	// 10. Background maintenance worker
	maintenanceWorker := worker.NewMaintenanceWorker(
		ledger,
		employmentService,
		dashboardService,
		hierarchyService,
		log,
		time.Duration(cfg.MaintenanceInterval)*time.Minute,
	)
	go maintenanceWorker.Start(ctx)

	// 11. HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootWithTracing,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop maintenance worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), audit.RequestIDKey{}, reqID)
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

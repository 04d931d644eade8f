package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/check-vero/apiserver/config"
	"github.com/check-vero/apiserver/internal/db"
	"github.com/check-vero/apiserver/internal/handlers"
	"github.com/check-vero/apiserver/internal/mq"
	"github.com/check-vero/apiserver/internal/services"
	"github.com/check-vero/apiserver/internal/store"
	"github.com/check-vero/apiserver/internal/store/memory"
	"github.com/check-vero/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router, and the optional backends it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *mq.Publisher
	logger     *zap.Logger
}

// New constructs a Server: it selects the store backend, wires the services
// and routes, and connects the optional object storage and broker backends.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	var (
		userRepo  services.UserRepository
		phoneRepo services.PhoneNumberRepository
		repRepo   services.ReportRepository
		logRepo   services.VerificationLogRepository
		dbConn    *sql.DB
	)

	switch cfg.StoreBackend {
	case config.StoreMemory:
		mem := memory.New()
		userRepo = mem.Users()
		phoneRepo = mem.PhoneNumbers()
		repRepo = mem.Reports()
		logRepo = mem.VerificationLogs()
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		dbConn = conn
		userRepo = store.NewUserRepository(conn)
		phoneRepo = store.NewPhoneNumberRepository(conn)
		repRepo = store.NewReportRepository(conn)
		logRepo = store.NewVerificationLogRepository(conn)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	objects, err := newObjectStorage(ctx, cfg)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		closeDB(dbConn)
		return nil, err
	}

	userService := services.NewUserService(userRepo)
	phoneService := services.NewPhoneService(phoneRepo, logRepo)
	reportService := services.NewReportService(repRepo, userRepo, objects, eventPublisher(publisher), logger)
	statsService := services.NewStatsService(userRepo, phoneRepo, repRepo, logRepo)

	if cfg.SeedDemoData {
		if err := phoneService.SeedDemoNumbers(ctx); err != nil {
			logger.Warn("seed demo numbers", zap.Error(err))
		}
	}

	tokenTTL := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		handlers.AuthRouter(r, userService, jwtSecret, tokenTTL, authMiddleware)
		handlers.PhoneRouter(r, phoneService, authMiddleware)
		handlers.ReportRouter(r, reportService, authMiddleware)
		handlers.StatsRouter(r, statsService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown and releases owned backends.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	closeDB(s.db)
	return s.httpServer.Close()
}

func closeDB(conn *sql.DB) {
	if conn != nil {
		_ = conn.Close()
	}
}

// newObjectStorage connects the configured screenshot store, or returns nil
// when none is configured (screenshots are then kept inline).
func newObjectStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.ObjectStorage {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown object storage backend %q", cfg.ObjectStorage)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return wrapped, nil
}

// newPublisher connects the configured broker, or returns nil when none is
// configured (report events are then disabled).
func newPublisher(ctx context.Context, cfg config.Config) (*mq.Publisher, error) {
	switch cfg.Broker {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.NewPublisher(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.NewPublisher(client), nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", cfg.Broker)
	}
}

// eventPublisher avoids handing the services a non-nil interface wrapping a
// nil *mq.Publisher.
func eventPublisher(p *mq.Publisher) services.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

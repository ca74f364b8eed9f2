package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/heroverse/apiserver/config"
	"github.com/heroverse/apiserver/internal/cache"
	"github.com/heroverse/apiserver/internal/events"
	"github.com/heroverse/apiserver/internal/handlers"
	"github.com/heroverse/apiserver/internal/mq"
	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/internal/storage"
	"go.uber.org/zap"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Stores       Stores
	Objects      *storage.Storage
	Events       services.EventSink
	ProfileCache services.ProfileCache
	RateLimiter  *handlers.IPRateLimiter
	Logger       *zap.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	stores     Stores
	queue      *mq.MQ
	redis      *redis.Client
	stopSweep  context.CancelFunc
	logger     *zap.Logger
}

// New connects every configured backend and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv := &Server{stores: stores, logger: logger}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		srv.closeBackends(ctx)
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		srv.closeBackends(ctx)
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	var sinks services.EventSinks
	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		srv.closeBackends(ctx)
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if queue != nil {
		srv.queue = queue
		sinks = append(sinks, events.NewPublisher(queue, cfg.MQ.Channel))
	}

	deps := Deps{Stores: stores, Objects: objects, Logger: logger}
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			srv.closeBackends(ctx)
			return nil, err
		}
		srv.redis = client
		profileCache := cache.NewProfileCache(client, cfg.Redis.TTL)
		deps.ProfileCache = profileCache
		sinks = append(sinks, profileCache)
	}
	if len(sinks) > 0 {
		deps.Events = sinks
	}

	deps.RateLimiter = handlers.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	router, err := NewRouter(cfg, deps)
	if err != nil {
		srv.closeBackends(ctx)
		return nil, err
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	srv.stopSweep = stopSweep
	go deps.RateLimiter.Run(sweepCtx, handlers.RateLimiterSweepEvery)

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// NewRouter wires services and handlers on top of deps.
func NewRouter(cfg config.Config, deps Deps) (*chi.Mux, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := services.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, err
	}

	users := deps.Stores.Users
	authService := services.NewAuthService(users, tokens, deps.Events, logger)
	subscriptionService := services.NewSubscriptionService(users, deps.Events, logger)
	profileService := services.NewProfileService(users, deps.ProfileCache, logger)
	postService := services.NewPostService(deps.Stores.Posts)

	var objects services.ObjectStore
	if deps.Objects != nil {
		objects = deps.Objects
	}
	accountService := services.NewAccountService(
		users, objects, deps.Events, logger,
		cfg.Storage.PublicBaseURL, cfg.Avatar.Size, cfg.Avatar.MaxPixels,
	)

	authMiddleware := handlers.RequireAuth(authService)
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = handlers.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	accountHandler := handlers.NewAccountHandler(subscriptionService, accountService, logger, cfg.Avatar.MaxBytes)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	if deps.Objects != nil {
		router.Get("/assets/*", handlers.Assets(deps.Objects, logger))
	}
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, authService, logger, limiter.Middleware)
		r.Route("/account", func(r chi.Router) {
			handlers.AccountRouter(r, accountHandler, authMiddleware)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UsersRouter(r, accountHandler, authMiddleware)
		})
		r.Route("/profiles", func(r chi.Router) {
			handlers.ProfileRouter(r, profileService, logger)
		})
		r.Route("/post", func(r chi.Router) {
			handlers.PostRouter(r, postService, logger, authMiddleware)
		})
	})
	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and then releases every backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends(ctx)
	return err
}

func (s *Server) closeBackends(ctx context.Context) {
	if s.stopSweep != nil {
		s.stopSweep()
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("close mq failed", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("close redis failed", zap.Error(err))
		}
	}
	if err := s.stores.Close(ctx); err != nil {
		s.logger.Warn("close store failed", zap.Error(err))
	}
}

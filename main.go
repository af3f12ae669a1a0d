package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reclaimAPI/handlers"
	"reclaimAPI/internal/config"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/metrics"
	"reclaimAPI/internal/throttle"
	"reclaimAPI/internal/workers"
	"reclaimAPI/middleware"
	"reclaimAPI/services"

	_ "net/http/pprof"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := docstore.Open(openCtx, cfg.Store)
	cancel()
	if err != nil {
		log.Fatal("failed to open document store", "driver", cfg.Store.Driver, "error", err)
	}
	defer func() {
		log.Info("closing document store")
		store.Close()
	}()
	log.Info("document store ready", "driver", cfg.Store.Driver)

	var provider middleware.IdentityProvider
	switch cfg.AuthMode {
	case config.AuthModeClerk:
		clerk.SetKey(cfg.ClerkSecretKey)
		provider = middleware.ClerkProvider{}
		log.Info("Clerk initialized successfully")
	default:
		provider = middleware.HeaderProvider{}
		log.Warn("header authentication enabled; do not expose this instance publicly")
	}

	roomLimiter, closeLimiter, err := newRoomLimiter(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to init room throttle", "error", err)
	}
	defer closeLimiter()

	// 5 requests per second per IP, burst 30
	apiLimiter := throttle.NewLocalLimiter(30, 6*time.Second)
	go apiLimiter.Cleanup(ctx)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	metrics.Register(prometheus.DefaultRegisterer)

	progressionService := services.NewProgressionService(store, cfg.Location, log.With("service", "progression"))
	catalogService := services.NewCatalogService(store, cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	ledgerService := services.NewLedgerService(store, catalogService, log.With("service", "ledger"))
	roomService := services.NewRoomService(store, roomLimiter, log.With("service", "rooms"))
	postService := services.NewPostService(store)

	streakWorker := workers.NewStreakWorker(progressionService, cfg.StreakInterval, log.With("worker", "streak"))
	go streakWorker.Start(ctx)

	progressHandler := handlers.NewProgressHandler(progressionService, ledgerService)
	challengeHandler := handlers.NewChallengeHandler(catalogService, ledgerService)
	roomHandler := handlers.NewRoomHandler(roomService)
	postHandler := handlers.NewPostHandler(postService)

	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(log.With("component", "http")))
	r.Use(middleware.RateLimitMiddleware(apiLimiter, cfg.TrustedProxies, log))
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(cfg.PprofSecret)(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			log.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "document store unreachable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "reclaim-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 (REQUIRE AUTH)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AuthMiddleware(provider, log))

	api.HandleFunc("/progress/{userId}", progressHandler.GetProgress).Methods("GET")
	api.HandleFunc("/progress/{userId}/select", progressHandler.SelectPhase).Methods("POST")
	api.HandleFunc("/progress/{userId}/relapse", progressHandler.RecordRelapse).Methods("POST")
	api.HandleFunc("/progress/{userId}/completions", progressHandler.ListCompletions).Methods("GET")

	api.HandleFunc("/challenges", challengeHandler.ListAll).Methods("GET")
	api.HandleFunc("/challenges/{cadence}", challengeHandler.ListChallenges).Methods("GET")
	api.HandleFunc("/challenges/{id}/complete", challengeHandler.CompleteChallenge).Methods("POST")

	api.HandleFunc("/rooms", roomHandler.ListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}/enter", roomHandler.EnterRoom).Methods("POST")

	api.HandleFunc("/posts", postHandler.ListPosts).Methods("GET")
	api.HandleFunc("/posts", postHandler.CreatePost).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret", middleware.UserIDHeader, middleware.RequestIDHeader}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length", middleware.RequestIDHeader}),
		gorilllaHandlers.AllowCredentials(),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	log.Info("server exited")
}

// newRoomLimiter uses Redis when REDIS_URL is set so attempt budgets hold
// across instances, and an in-process limiter otherwise.
func newRoomLimiter(ctx context.Context, cfg *config.Config, log *logger.Logger) (throttle.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		local := throttle.NewLocalLimiter(cfg.RoomAttempts, cfg.RoomAttemptWindow)
		go local.Cleanup(ctx)
		log.Info("room throttle: in-process")
		return local, func() {}, nil
	}

	client, err := throttle.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("room throttle: redis")
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Warn("closing redis client", "error", err)
		}
	}
	return throttle.NewRedisLimiter(client, cfg.RoomAttempts, cfg.RoomAttemptWindow), closeClient, nil
}

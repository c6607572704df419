package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/kasirku/backend-pos/internal/auth"
	"github.com/kasirku/backend-pos/internal/catalog"
	"github.com/kasirku/backend-pos/internal/checkout"
	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/config"
	"github.com/kasirku/backend-pos/internal/db"
	"github.com/kasirku/backend-pos/internal/health"
	"github.com/kasirku/backend-pos/internal/obs"
	"github.com/kasirku/backend-pos/internal/order"
	"github.com/kasirku/backend-pos/internal/report"
	"github.com/kasirku/backend-pos/internal/security"
	"github.com/kasirku/backend-pos/internal/tasks"
	"github.com/kasirku/backend-pos/internal/user"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "pos-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := tasks.NewClient(asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}))
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	pinVerifier, err := auth.VerifierFor(cfg.PINScheme)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure pin scheme")
	}
	if cfg.PINScheme == "plain" && cfg.AppEnv == "production" {
		logger.Warn().Msg("plaintext pin scheme in production, set AUTH_PIN_SCHEME=argon2id")
	}

	authService, err := auth.NewService(auth.Config{
		Store:          auth.NewPGXStore(pool),
		Verifier:       pinVerifier,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMiddleware := auth.Middleware{Service: authService}

	loginRate, err := limiter.NewRateFromFormatted(cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse login rate")
	}
	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "limiter"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	loginLimiter := auth.LoginLimiter{Limiter: limiter.New(limiterStore, loginRate)}

	catalogService, err := catalog.NewService(
		catalog.NewPGXStore(pool),
		catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := &catalog.Handler{Service: catalogService, Validate: validate}

	userService, err := user.NewService(user.NewPGXStore(pool), pinVerifier)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise user service")
	}
	userHandler := &user.Handler{Service: userService, Validate: validate}

	checkoutService, err := checkout.NewService(checkout.Config{
		Store:             checkout.NewPGXStore(pool),
		Enqueuer:          taskClient,
		Logger:            logger,
		StockTracking:     cfg.StockTracking,
		LowStockThreshold: int32(cfg.LowStockThreshold),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout service")
	}
	checkoutHandler := &checkout.Handler{Service: checkoutService, Validate: validate}

	orderService, err := order.NewService(order.NewPGXQuerier(pool))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order service")
	}
	orderHandler := &order.Handler{Service: orderService}

	reportService, err := report.NewService(report.NewPGXQuerier(pool), redisClient, cfg.ReportCacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise report service")
	}
	reportHandler := &report.Handler{Service: reportService}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: envBool("SECURE_HEADERS", true), EnableHSTS: envBool("SECURE_HSTS", false)}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		pprofUser := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pprofPass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), pprofUser, pprofPass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(terminal chi.Router) {
			terminal.Use(authMiddleware.RequireAuth)
			terminal.Get("/categories", catalogHandler.ListCategories)
			terminal.Get("/products", catalogHandler.ListProducts)
			terminal.Get("/products/{productID}", catalogHandler.GetProduct)

			terminal.With(idem.Middleware).Post("/checkout", checkoutHandler.Record)

			terminal.Get("/orders", orderHandler.List)
			terminal.Get("/orders/{orderID}", orderHandler.Get)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(auth.RequireRole(user.RoleAdmin))

			admin.Post("/categories", catalogHandler.CreateCategory)
			admin.Put("/categories/{categoryID}", catalogHandler.UpdateCategory)
			admin.Delete("/categories/{categoryID}", catalogHandler.DeleteCategory)

			admin.Post("/products", catalogHandler.CreateProduct)
			admin.Post("/products/bulk", catalogHandler.BulkImport)
			admin.Put("/products/{productID}", catalogHandler.UpdateProduct)
			admin.Delete("/products/{productID}", catalogHandler.DeleteProduct)

			admin.Get("/users", userHandler.List)
			admin.Post("/users", userHandler.Create)
			admin.Get("/users/{userID}", userHandler.Get)
			admin.Put("/users/{userID}", userHandler.Update)
			admin.Delete("/users/{userID}", userHandler.Delete)
		})

		v.Route("/reports", func(rep chi.Router) {
			rep.Use(authMiddleware.RequireAuth)
			rep.Use(auth.RequireRole(user.RoleAdmin))
			rep.Get("/sales", reportHandler.Sales)
			rep.Get("/top-products", reportHandler.TopProducts)
			rep.Get("/overview", reportHandler.Overview)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, pprofUser, pass string) http.Handler {
	pprofUser = strings.TrimSpace(pprofUser)
	pass = strings.TrimSpace(pass)
	if pprofUser == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(pprofUser)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

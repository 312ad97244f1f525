// Package main is the entrypoint for the Phorium API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phorium/phorium/internal/ai"
	"github.com/phorium/phorium/internal/auth"
	"github.com/phorium/phorium/internal/cache"
	"github.com/phorium/phorium/internal/config"
	"github.com/phorium/phorium/internal/handler"
	"github.com/phorium/phorium/internal/metrics"
	"github.com/phorium/phorium/internal/middleware"
	"github.com/phorium/phorium/internal/repository"
	"github.com/phorium/phorium/internal/server"
	"github.com/phorium/phorium/internal/service"
	"github.com/phorium/phorium/internal/storefront"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	signer, err := auth.NewSessionSigner(cfg.SessionSecret)
	if err != nil {
		logger.Error("invalid session secret", "error", err)
		os.Exit(1)
	}

	recorder := metrics.NewPrometheus()

	// Providers are optional; generation endpoints answer 503 without them.
	limiter := ai.NewLimiter(cfg.ProviderRPS, cfg.ProviderBurst)

	var textGen service.TextGenerator
	gemini, err := ai.NewGeminiText(ctx, cfg.GeminiAPIKey, cfg.TextModel, limiter)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("text generation disabled", "reason", "GEMINI_API_KEY not set")
	case err != nil:
		logger.Error("failed to create text generator", "error", err)
		os.Exit(1)
	default:
		textGen = gemini
	}

	var imageGen service.ImageGenerator
	if cfg.ImageAPIKey != "" {
		imageGen = ai.NewImageClient(cfg.ImageAPIURL, cfg.ImageAPIKey, cfg.ImageModel, nil, limiter)
	} else {
		logger.Warn("image generation disabled", "reason", "IMAGE_API_KEY not set")
	}

	ledgerService := service.NewLedgerService(repo, cacheClient, cfg.BalanceCacheTTL, recorder, logger)
	generationService := service.NewGenerationService(
		ledgerService,
		repo,
		textGen,
		imageGen,
		service.GenerationCosts{Text: cfg.TextCreditCost, Image: cfg.ImageCreditCost},
		recorder,
		logger,
	)
	storefrontService := service.NewStorefrontService(repo, storefront.NewClient(cfg.ShopifyAPIVersion), recorder, logger)

	handlers := &handlers{
		base:       handler.New(version),
		health:     handler.NewHealthHandler(repo, cacheClient),
		access:     handler.NewAccessHandler(signer, handler.AccessConfig{AccessCodeHash: cfg.AccessCodeHash, AdminSecretHash: cfg.AdminSecretHash, SessionTTL: cfg.SessionTTL, SecureCookies: !cfg.IsDevelopment()}, logger),
		credits:    handler.NewCreditHandler(ledgerService, logger),
		admin:      handler.NewAdminHandler(ledgerService, logger),
		generation: handler.NewGenerationHandler(generationService, logger),
		store:      handler.NewStoreHandler(storefrontService, logger),
	}

	r := setupRouter(handlers, signer, cacheClient, recorder, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	if gemini != nil {
		srv.OnShutdown("gemini", func(context.Context) error {
			return gemini.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"access_wall", cfg.AccessWallEnabled(),
		"maintenance", cfg.MaintenanceMode,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type handlers struct {
	base       *handler.Handler
	health     *handler.HealthHandler
	access     *handler.AccessHandler
	credits    *handler.CreditHandler
	admin      *handler.AdminHandler
	generation *handler.GenerationHandler
	store      *handler.StoreHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handlers,
	sessions middleware.SessionParser,
	limiter middleware.RateLimiter,
	recorder *metrics.PrometheusRecorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Sessions(sessions))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))
	r.Use(middleware.Maintenance(cfg.MaintenanceMode))
	r.Use(middleware.AccessWall(cfg.AccessWallEnabled()))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:              logger,
		Limiter:             limiter,
		GenerationPerMinute: cfg.GenerationRatePerMinute,
		GenerationBurst:     cfg.GenerationBurst,
		GatePerMinute:       cfg.GateRatePerMin,
		GateBurst:           cfg.GateBurst,
	}

	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Method("GET", "/metrics", recorder.Handler())
	r.Get("/", h.base.Index)

	// Gate endpoints: rate limited per IP against secret guessing.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitGate(rateLimitCfg))
		r.Post("/access", h.access.Access)
		r.Post("/admin/session", h.access.AdminLogin)
	})
	r.Delete("/admin/session", h.access.AdminLogout)

	r.Route("/api", func(r chi.Router) {
		r.Route("/credits", func(r chi.Router) {
			r.Post("/use", h.credits.Use)
			r.Get("/{userID}", h.credits.Balance)
			r.Get("/{userID}/history", h.credits.History)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/credits", h.admin.GrantCredits)
			r.Post("/plan", h.admin.SetPlan)
			r.Get("/accounts/{userID}", h.admin.Account)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Use(middleware.RateLimitGeneration(rateLimitCfg))
			r.Post("/text", h.generation.Text)
			r.Post("/image", h.generation.Image)
		})
		r.Get("/generations/{userID}", h.generation.History)

		r.Route("/store", func(r chi.Router) {
			r.Post("/connect", h.store.Connect)
			r.Get("/{userID}", h.store.Status)
			r.Delete("/{userID}", h.store.Disconnect)
			r.Get("/{userID}/products", h.store.Products)
			r.Post("/{userID}/products", h.store.CreateDraft)
			r.Put("/{userID}/products/{productID}/description", h.store.PublishDescription)
		})
	})

	r.NotFound(h.base.NotFound)
	r.MethodNotAllowed(h.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

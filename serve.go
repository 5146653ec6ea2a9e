package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/config"
	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/handlers"
	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/mcp"
	mcpauth "github.com/lumenbrand/lumen-engine/pkg/mcp/auth"
	"github.com/lumenbrand/lumen-engine/pkg/mcp/tools"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/middleware"
	"github.com/lumenbrand/lumen-engine/pkg/prompts"
	"github.com/lumenbrand/lumen-engine/pkg/refimages"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

const shutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP server",
		RunE:  runServe,
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification))

	m := metrics.New()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return err
	}
	defer db.Close()

	var refCache refimages.Cache
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, reference image cache disabled", zap.Error(err))
	} else if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		refCache = refimages.NewRedisCache(redisClient)
	}

	registry, err := llm.NewRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to configure generation providers", zap.Error(err))
		return err
	}

	rules := prompts.DefaultGlobalRules()
	if cfg.Prompts.GlobalRulesPath != "" {
		rules, err = prompts.LoadGlobalRules(cfg.Prompts.GlobalRulesPath)
		if err != nil {
			logger.Error("Failed to load global rules", zap.String("path", cfg.Prompts.GlobalRulesPath), zap.Error(err))
			return err
		}
	}

	// Repositories
	generationRepo := repositories.NewGenerationRepository(m, logger)
	knowledgeRepo := repositories.NewKnowledgeRepository()
	masterRepo := repositories.NewMasterRepository()
	mediaRepo := repositories.NewMediaRepository()
	productRepo := repositories.NewProductRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()

	// Services
	tenantCtx := services.NewTenantContextFunc(db)
	dispatcher := services.NewDispatcher(
		services.ProvidersFromRegistry(registry),
		services.DispatcherConfigFrom(&cfg.Generation),
		m, logger)
	knowledgeAccessor := services.NewKnowledgeAccessor(knowledgeRepo, productRepo, tenantCtx, logger)
	fetcher := refimages.NewHTTPFetcher(nil, cfg.Generation.MaxReferenceImageSize)
	if cfg.Generation.AllowPrivateReferenceHosts {
		logger.Warn("Reference images may be fetched from private networks")
		fetcher.AllowPrivateNetworks()
	}
	materializer := refimages.NewMaterializer(refimages.MaterializerConfig{
		FetchTimeout:  cfg.Generation.ImageFetchTimeout,
		CacheTTL:      cfg.Generation.ReferenceCacheTTL,
		MaxConcurrent: cfg.Generation.MaxReferenceFetches,
	}, fetcher, refCache, m, logger)

	copyService := services.NewCopyGenerationService(
		knowledgeAccessor,
		services.NewMasterLoader(masterRepo, logger),
		dispatcher, generationRepo, rules, m, logger)
	imageService := services.NewImageGenerationService(services.ImageGenerationDeps{
		Knowledge:     knowledgeAccessor,
		Materializer:  materializer,
		Dispatcher:    dispatcher,
		Generations:   generationRepo,
		Media:         mediaRepo,
		Subscriptions: subscriptionRepo,
		Rules:         rules,
		BaseURL:       cfg.BaseURL,
		Metrics:       m,
	}, logger)
	videoService := services.NewVideoGenerationService(dispatcher, generationRepo, subscriptionRepo, m, logger)
	generationService := services.NewGenerationService(generationRepo)
	productService := services.NewProductService(productRepo, logger)
	knowledgeService := services.NewKnowledgeService(knowledgeRepo, logger)

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		logger.Error("Failed to initialize JWKS client", zap.Error(err))
		return err
	}
	defer jwksClient.Close()
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	tenantMiddleware := database.WithTenantContext(db, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, m, logger).RegisterRoutes(mux)
	handlers.NewGenerationHandler(copyService, imageService, videoService, generationService, logger).
		RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewProductHandler(productService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewKnowledgeHandler(knowledgeService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewMediaHandler(mediaRepo, db.UnscopedContext, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("lumen-engine", cfg.Version, logger)
	mcpServer.RegisterTools(mcp.ToolDeps{
		Version:   cfg.Version,
		Providers: configuredProviders(cfg),
		Copy: &tools.CopyToolDeps{
			CopyService:   copyService,
			TenantContext: tenantCtx,
			Logger:        logger,
		},
	})
	handlers.NewMCPHandler(mcpServer, m, logger).RegisterRoutes(mux, mcpauth.NewMiddleware(authService, logger))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger, m)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation requests wait on providers; the write timeout must
		// outlast a full retry and fallback chain.
		WriteTimeout: 4*cfg.Generation.ProviderTimeout + time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting lumen-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// configuredProviders lists the providers with credentials, for the MCP
// health tool.
func configuredProviders(cfg *config.Config) []string {
	var out []string
	if cfg.Providers.AnthropicConfigured() {
		out = append(out, llm.ProviderAnthropic)
	}
	if cfg.Providers.GeminiConfigured() {
		out = append(out, llm.ProviderGemini)
	}
	if cfg.Providers.OpenAIConfigured() {
		out = append(out, llm.ProviderOpenAI)
	}
	if cfg.Providers.FreepikConfigured() {
		out = append(out, llm.ProviderFreepik)
	}
	return out
}

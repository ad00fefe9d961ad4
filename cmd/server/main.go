// Package main is the entry point for the Canvas Gateway.
// @title Canvas Gateway API
// @version 1.0
// @description Multi-tenant gateway exposing read-only Canvas LMS operations behind short-lived sessions, with anonymized responses
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/unifiedui/canvas-gateway
// @contact.email support@unifiedui.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey SessionAuth
// @in header
// @name Authorization
// @description Session id returned by POST /auth, sent as "Bearer {session_id}"
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unifiedui/canvas-gateway/docs"
	"github.com/unifiedui/canvas-gateway/internal/api/handlers"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	"github.com/unifiedui/canvas-gateway/internal/api/routes"
	"github.com/unifiedui/canvas-gateway/internal/config"
	"github.com/unifiedui/canvas-gateway/internal/core/cache"
	"github.com/unifiedui/canvas-gateway/internal/core/docdb"
	"github.com/unifiedui/canvas-gateway/internal/core/vault"
	rediscache "github.com/unifiedui/canvas-gateway/internal/infrastructure/cache/redis"
	"github.com/unifiedui/canvas-gateway/internal/infrastructure/docdb/mongodb"
	dotenvvault "github.com/unifiedui/canvas-gateway/internal/infrastructure/vault/dotenv"
	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
	"github.com/unifiedui/canvas-gateway/internal/pkg/logger"
	"github.com/unifiedui/canvas-gateway/internal/services/audit"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/credentials"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
	"github.com/unifiedui/canvas-gateway/internal/services/session"
)

const serviceVersion = "1.0.0"

// sessionSecretKey names the server secret in the vault.
const sessionSecretKey = "dotenv://SESSION_SECRET"

func main() {
	// Redacting logger before anything can fail
	logger.Init("info", logger.FormatJSON)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize vault using factory pattern
	vaultClient, err := createVault(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault")
	}
	defer vaultClient.Close()

	// Initialize rate limiters using factory pattern
	limiter, ipLimiter, closeCache, err := createLimiters(cfg.Cache, cfg.RateLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rate limiter")
	}
	defer closeCache()

	// Initialize audit recorder using factory pattern
	recorder, closeDocDB, err := createRecorder(ctx, cfg.DocDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audit recorder")
	}
	defer closeDocDB()

	// Initialize encryptor
	encryptor, err := createEncryptor(ctx, cfg.Security, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	// Initialize session service
	sessionService, err := session.NewService(&session.Config{
		Repository:       session.NewMemoryRepository(),
		Encryptor:        encryptor,
		Clock:            clock.System{},
		IdleTimeout:      cfg.Session.IdleTimeout,
		SweepInterval:    cfg.Session.SweepInterval,
		MaxPerCredential: cfg.Session.MaxPerCredential,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session service")
	}
	go sessionService.Run(ctx)

	canvasClient, err := canvas.NewClient(&canvas.ClientConfig{
		Timeout:          cfg.Canvas.Timeout,
		MaxResponseBytes: cfg.Canvas.MaxResponseBytes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize canvas client")
	}

	gatewayService, err := gateway.NewService(&gateway.Config{
		Sessions:  sessionService,
		Limiter:   limiter,
		Canvas:    canvasClient,
		Encryptor: encryptor,
		Recorder:  recorder,
		Clock:     clock.System{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gateway service")
	}

	if cfg.Tenancy.Mode == config.TenancySingle {
		source, err := credentials.NewVaultSource(&credentials.VaultSourceConfig{Vault: vaultClient})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize credential source")
		}
		if err := gatewayService.PinDefaultSession(ctx, source); err != nil {
			log.Fatal().Err(err).Msg("failed to open default session")
		}
		log.Info().Msg("single tenancy: default session opened")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Setup router
	router := setupRouter(cfg, gatewayService, limiter, ipLimiter, recorder)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("address", cfg.Server.Address()).Str("tenancy", cfg.Tenancy.Mode).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	stop()

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := recorder.Close(); err != nil {
		log.Error().Err(err).Msg("failed to flush audit events")
	}

	log.Info().Msg("server exited")
}

// createVault creates a vault based on the configuration.
func createVault(cfg config.VaultConfig) (vault.Vault, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewVault(cfg.SecretsFile)
	default:
		return nil, errors.New("unsupported vault type: " + cfg.Type)
	}
}

// createLimiters creates the session and address limiters based on the
// cache configuration.  The address limiter is nil when disabled.
func createLimiters(cfg config.CacheConfig, rl config.RateLimitConfig) (ratelimit.Limiter, ratelimit.Limiter, func(), error) {
	sessionCfg := ratelimit.Config{Limit: rl.Requests, Window: rl.Window}
	ipCfg := ratelimit.Config{Limit: rl.PerIPRequests, Window: rl.Window}

	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		redisCache, err := rediscache.NewCache(rediscache.Config{
			Host:      cfg.Host,
			Port:      cfg.Port,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		closeCache := func() { _ = redisCache.Close() }

		limiter, err := ratelimit.NewCacheLimiter(sessionCfg, redisCache)
		if err != nil {
			closeCache()
			return nil, nil, nil, err
		}

		var ipLimiter ratelimit.Limiter
		if rl.PerIPRequests > 0 {
			if ipLimiter, err = ratelimit.NewCacheLimiter(ipCfg, redisCache); err != nil {
				closeCache()
				return nil, nil, nil, err
			}
		}
		return limiter, ipLimiter, closeCache, nil

	case cache.TypeNone:
		limiter, err := ratelimit.NewMemoryLimiter(sessionCfg, clock.System{})
		if err != nil {
			return nil, nil, nil, err
		}

		var ipLimiter ratelimit.Limiter
		if rl.PerIPRequests > 0 {
			if ipLimiter, err = ratelimit.NewMemoryLimiter(ipCfg, clock.System{}); err != nil {
				return nil, nil, nil, err
			}
		}
		return limiter, ipLimiter, func() {}, nil

	default:
		return nil, nil, nil, errors.New("unsupported cache type: " + cfg.Type)
	}
}

// createRecorder creates the audit recorder based on the document database
// configuration.
func createRecorder(ctx context.Context, cfg config.DocDBConfig) (audit.Recorder, func(), error) {
	switch docdb.Type(cfg.Type) {
	case docdb.TypeMongoDB:
		client, err := mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.URI,
			DatabaseName: cfg.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() { _ = client.Close(context.Background()) }

		// Ensure database indexes
		if err := client.AuditEvents().EnsureIndexes(ctx, cfg.AuditRetention); err != nil {
			log.Warn().Err(err).Msg("failed to ensure audit indexes")
		}

		recorder, err := audit.NewRecorder(&audit.Config{Client: client})
		if err != nil {
			closeClient()
			return nil, nil, err
		}
		return recorder, closeClient, nil

	case docdb.TypeNone:
		return audit.NewNopRecorder(), func() {}, nil

	default:
		return nil, nil, errors.New("unsupported docdb type: " + cfg.Type)
	}
}

// createEncryptor creates the credential encryptor.  The secret comes from
// the configuration, then the vault; without either an ephemeral one is
// generated and sessions do not survive a restart.
func createEncryptor(ctx context.Context, cfg config.SecurityConfig, vaultClient vault.Vault) (encryption.Encryptor, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		if value, err := vaultClient.GetSecret(ctx, sessionSecretKey); err == nil {
			secret = value
		}
	}

	if secret == "" {
		generated, err := encryption.GenerateKey()
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("SESSION_SECRET not set, using an ephemeral secret")
		secret = generated
	}

	return encryption.NewPBKDF2Encryptor(secret, cfg.KDFIterations)
}

// setupRouter creates and configures the Gin router.
func setupRouter(cfg *config.Config, gw gateway.Service, limiter, ipLimiter ratelimit.Limiter, recorder audit.Recorder) *gin.Engine {
	router := gin.New()

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins

	routesCfg := &routes.Config{
		HealthHandler:     handlers.NewHealthHandler(limiter, recorder),
		AuthHandler:       handlers.NewAuthHandler(gw),
		CanvasHandler:     handlers.NewCanvasHandler(gw),
		MCPHandler:        handlers.NewMCPHandler(gw, serviceVersion),
		SessionMiddleware: middleware.NewSessionMiddleware(),
	}
	if ipLimiter != nil {
		routesCfg.RateLimitMiddleware = middleware.NewRateLimitMiddleware(ipLimiter)
	}

	routes.SetupWithMiddleware(router, routesCfg, &routes.MiddlewareConfig{
		Logging:      middleware.NewLoggingMiddleware(),
		Error:        middleware.NewErrorMiddleware(),
		CORS:         cors,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

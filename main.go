package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/papyrus-app/papyrus/handlers"
	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/catalog"
	"github.com/papyrus-app/papyrus/internal/config"
	"github.com/papyrus-app/papyrus/internal/database"
	papyrusoidc "github.com/papyrus-app/papyrus/internal/oidc"
	"github.com/papyrus-app/papyrus/internal/resolver"
	"github.com/papyrus-app/papyrus/internal/sessions"
	"github.com/papyrus-app/papyrus/internal/storage"
	"github.com/papyrus-app/papyrus/internal/tokens"
	"github.com/papyrus-app/papyrus/internal/users"
	"github.com/papyrus-app/papyrus/pkg/logger"
	"github.com/papyrus-app/papyrus/pkg/metrics"
	"github.com/papyrus-app/papyrus/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}

	table, err := loadPermissionTable(cfg)
	if err != nil {
		logger.Fatalf("permission table: %v", err)
	}
	gate := authz.NewGate(table)
	logger.Infof("permission table loaded: roles=%v", table.Roles())

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production should front this with a
	// stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// Redis: document cache, sessions, blacklist, rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("redis ping failed (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB with retry/backoff to tolerate startup races
	ctx := context.Background()
	var client *mongo.Client
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, err)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	var store storage.Storage = storage.NewMongo(db)
	if redisClient != nil {
		store = storage.NewRedisCache(store, redisClient, cfg.Redis.CacheTTL)
	}
	store = storage.NewInstrumented(store)
	res := resolver.New(cat, store)

	userSvc := users.NewService(users.NewMongoRepository(db.Collection("users")))
	var sessionsSvc *sessions.Service
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
	} else {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
	}

	verifier := buildVerifier(ctx, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := gin.H{
			"mongo": client.Ping(c.Request.Context(), nil) == nil,
			"redis": redisClient == nil || redisClient.Ping(c.Request.Context()).Err() == nil,
		}
		for _, ok := range deps {
			if ok != true {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// identity-provider tokens can be exchanged for papyrus tokens when the
	// verifier exposes its claims (OIDC and the insecure test verifier do)
	claimsVerifier, _ := verifier.(handlers.ClaimsVerifier)
	handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, claimsVerifier).Register(r.Group("/"))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1", middleware.AuthMiddleware(verifier))
	handlers.NewDocumentHandler(cat, store, res, gate, cfg.Resolver.LookupTimeout).Register(api)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting papyrus on %s (env=%s)", addr, cfg.Server.Environment)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// loadPermissionTable prefers the local artifact path, then object
// storage. The table is loaded exactly once; replacing it means
// restarting or swapping the whole table.
func loadPermissionTable(cfg *config.Config) (*authz.Table, error) {
	if cfg.Authz.TablePath != "" {
		if _, err := os.Stat(cfg.Authz.TablePath); err == nil {
			return authz.LoadFile(cfg.Authz.TablePath)
		}
	}
	if cfg.Authz.MinIOEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return authz.LoadObject(ctx, authz.ObjectSourceConfig{
			Endpoint:  cfg.Authz.MinIOEndpoint,
			AccessKey: cfg.Authz.MinIOAccessKey,
			SecretKey: cfg.Authz.MinIOSecretKey,
			UseSSL:    cfg.Authz.MinIOUseSSL,
			Bucket:    cfg.Authz.MinIOBucket,
			Object:    cfg.Authz.MinIOObject,
		})
	}
	return nil, fmt.Errorf("no permission table source configured (AUTHZ_TABLE_PATH or AUTHZ_MINIO_*)")
}

// buildVerifier picks the credential verifier: OIDC when configured, the
// built-in JWT verifier otherwise. ALLOW_INSECURE_TOKEN=true swaps in the
// signature-skipping verifier for integration tests only.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warnf("enabling insecure token verifier (integration mode)")
		return papyrusoidc.InsecureVerifier{}
	}
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		ver, err := papyrusoidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier, falling back to JWT: %v", err)
		} else {
			return ver
		}
	}
	return tokens.NewVerifier(cfg.JWT.Secret)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"todoapi/internal/cache"
	"todoapi/internal/config"
	"todoapi/internal/repo"
	"todoapi/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	store  repo.TodoRepo
	redis  *redis.Client
	router *gin.Engine
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	log.Info("store ready", "backend", cfg.Store.Backend)

	var todoCache *cache.TodoCache
	if cfg.Redis.CacheEnabled() {
		rdb, err := newRedis(cfg.Redis)
		if err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		a.redis = rdb
		todoCache = cache.NewTodoCache(rdb, cfg.Redis.DefaultTTL.Duration())
		log.Info("redis cache enabled", "ttl", cfg.Redis.DefaultTTL.Duration())
	}

	svc := service.NewTodoService(store, todoCache, log)
	a.router = newRouter(cfg, svc, log)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newStore(cfg config.Config) (repo.TodoRepo, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return repo.NewMemoryTodoRepo(nil), nil
	case config.BackendPostgres:
		if err := repo.MigratePG(cfg.PG.DSN); err != nil {
			return nil, err
		}
		db, err := newPostgres(cfg.PG.DSN)
		if err != nil {
			return nil, err
		}
		return repo.NewPGTodoRepo(db, nil), nil
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := repo.NewMongoClient(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		r, err := repo.NewMongoTodoRepo(ctx, client, cfg.Mongo.DatabaseName, nil)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return r, nil
	case config.BackendCosmos:
		client, err := repo.NewCosmosClient(cfg.Cosmos.Endpoint, cfg.Cosmos.ConnectionString)
		if err != nil {
			return nil, err
		}
		if cfg.Cosmos.Bootstrap {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := repo.EnsureCosmosContainers(ctx, client, cfg.Cosmos.DatabaseName); err != nil {
				return nil, err
			}
		}
		return repo.NewCosmosTodoRepo(client, cfg.Cosmos.DatabaseName, nil)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

// redisOptions prefers REDIS_URL; rediss:// enables TLS.
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if u := strings.TrimSpace(cfg.URL); u != "" {
		opts, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

func newRouter(cfg config.Config, svc *service.TodoService, log *slog.Logger) *gin.Engine {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Telemetry.RoleName),
		accessLog(log),
		cors.New(corsConfig(cfg)),
	)

	Setup(r, cfg, svc, log)
	return r
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Location"},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.AllowedOrigins()
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// accessLog writes one record per request.
func accessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		log.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

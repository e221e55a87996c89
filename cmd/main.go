package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/container"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/cache"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-service/internal/router"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
	"github.com/oksasatya/go-ddd-user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	c, err := buildContainer(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer c.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(corsConfig(cfg)))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(logger))
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, c)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "storage": cfg.StorageDriver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server exited properly")
}

func buildContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*container.Container, error) {
	c := &container.Container{Config: cfg, Logger: logger}

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
			DSN:         cfg.PostgresDSN(),
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, err
		}
		c.PGPool = pool
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			c.Close()
			return nil, err
		}
		c.Repo = pginfra.NewUserRepository(pool)
	case config.StorageMemory:
		c.Repo = memory.NewUserRepository()
	default:
		return nil, errors.New("unknown STORAGE_DRIVER " + cfg.StorageDriver)
	}

	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable; cache and rate limits disabled")
	}
	c.Redis = rdb
	c.Repo = cache.NewUserRepository(c.Repo, rdb, cfg.CacheTTL, logger)

	var indexer application.UserIndexer
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch unavailable; search disabled")
	} else if es != nil {
		c.ES = es
		indexer = search.NewUserIndexer(es, cfg.ESUsersIndex)
	}

	var notifier application.Notifier = messaging.NewLogNotifier(logger)
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable; welcome emails are logged only")
	} else if pub != nil {
		c.RabbitPub = pub
		notifier = messaging.NewQueueNotifier(pub, cfg.AppName)
	}

	c.Users = application.NewService(c.Repo, indexer, notifier, logger)
	return c, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.CORSOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

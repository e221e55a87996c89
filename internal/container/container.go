// Package container holds the components constructed at startup and shared by the router.
package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/application"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// Container is built once in main and passed explicitly. Optional clients are nil when
// their backend is not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher

	Repo  repository.UserRepository
	Users *application.Service
}

// Close releases every client the container owns.
func (c *Container) Close() {
	if c.RabbitPub != nil {
		c.RabbitPub.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && c.Logger != nil {
			c.Logger.WithError(err).Warn("redis close failed")
		}
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}

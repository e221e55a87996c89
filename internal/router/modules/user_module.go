package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
)

// UserModule registers the user routes under the given group (usually /api):
//
//	POST   /users          create
//	POST   /users/email    lookup by email
//	GET    /users/search   search index
//	GET    /users/:id      get
//	PUT    /users/:id      update
//	DELETE /users/:id      delete
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
	Logger  *logrus.Logger
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, logger *logrus.Logger) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, Logger: logger}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	writeLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP(), m.Logger)

	users := rg.Group("/users")
	{
		users.POST("", writeLimiter, m.Handler.Create)
		users.POST("/email", m.Handler.GetByEmail)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", writeLimiter, m.Handler.Update)
		users.DELETE("/:id", writeLimiter, m.Handler.Delete)
	}
}

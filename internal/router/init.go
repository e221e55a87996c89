package router

import (
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/container"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-service/internal/router/modules"
)

// InitModules registers every feature module with the registry.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	r.Engine.GET("/health", handlers.Health)

	// per-IP budget for every /api route; write routes add their own tighter limit
	r.Use(middleware.RateLimit(c.Redis, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP(), c.Logger))

	userHandler := handlers.NewUserHandler(c.Users, c.Logger)
	r.Add(modules.NewUserModule(userHandler, c.Redis, c.Logger))

	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis, c.Logger))
	}
}

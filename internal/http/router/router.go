// Package router builds the Gin engine from the composed App.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New creates the engine with global middleware, health routes and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := app.Health.Ping(ctx); err != nil {
			app.Logger.Warn("readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	v1 := api.Group("/v1")
	rc := &apphttp.RouterContext{
		Engine:   engine,
		API:      api,
		V1:       v1,
		Operator: v1.Group("", httpkit.BearerSecret(app.Config.GetDispatchSecret())),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rc)
		app.Logger.Info("module registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.HeaderRequestID},
		ExposeHeaders:    []string{"Retry-After", httpkit.HeaderRequestID},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	switch {
	case cfg.GetCORSAllowAll():
		c.AllowAllOrigins = true
	case len(cfg.GetCORSOrigins()) > 0:
		c.AllowOrigins = cfg.GetCORSOrigins()
	default:
		c.AllowOriginFunc = func(string) bool { return false }
	}
	return c
}

// Package router assembles the gin engine: global middleware, the /api/v1
// route table, health and swagger endpoints.
package router

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/persona-graph/config"
	_ "github.com/d60-Lab/persona-graph/docs"
	"github.com/d60-Lab/persona-graph/internal/api/handler"
	"github.com/d60-Lab/persona-graph/internal/api/middleware"
	"github.com/d60-Lab/persona-graph/pkg/response"
	"github.com/d60-Lab/persona-graph/pkg/token"
)

// HealthFunc 检查下游依赖（数据库、redis 等）
type HealthFunc func(ctx context.Context) error

// Setup 构建 gin 引擎
func Setup(cfg *config.Config, h *handler.Handler, tokens *token.Manager, accounts middleware.AccountChecker, health HealthFunc) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		otelgin.Middleware(cfg.Tracing.ServiceName),
		middleware.Logger(),
		middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	)
	if cfg.Server.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if health != nil {
			if err := health(ctx); err != nil {
				response.Fail(c, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
				return
			}
		}
		response.Success(c, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := middleware.Auth(tokens, accounts)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/accounts", h.Register)
		v1.DELETE("/accounts/me", auth, h.DeleteAccount)
		v1.POST("/sessions", h.Login)
		v1.DELETE("/sessions", auth, h.Logout)
	}
	{
		personas := v1.Group("/personas")
		personas.GET("/:handle", h.GetPersona)
		personas.GET("/current", auth, h.CurrentPersona)
		personas.POST("", auth, h.CreatePersona)
		personas.GET("", auth, h.ListMyPersonas)
		personas.POST("/signin", auth, h.SignInPersona)
		personas.PATCH("/:id", auth, h.UpdatePersona)
		personas.DELETE("/:id", auth, h.DeletePersona)
	}
	{
		relations := v1.Group("/relations")
		relations.GET("/:handle/following", h.ListFollowing)
		relations.GET("/:handle/followers", h.ListFollowers)
		relations.POST("/follow", auth, h.Follow)
		relations.DELETE("/follow/:handle", auth, h.Unfollow)
		relations.DELETE("/following", auth, h.UnfollowAll)
	}
	{
		freets := v1.Group("/freets")
		freets.GET("", h.ListFreets)
		freets.POST("", auth, h.PublishFreet)
		freets.DELETE("/:id", auth, h.DeleteFreet)
	}
	return r
}

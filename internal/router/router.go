package router

import (
	"lipa/config"
	"lipa/internal/auth"
	"lipa/internal/domain"
	"lipa/internal/handler"
	"lipa/internal/middleware"
	"lipa/internal/service"
	"lipa/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Setup(cfg *config.Config, svc *service.IntentService, hub *ws.IntentHub, limiter *middleware.IPRateLimiter, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimit(limiter))

	intentHandler := handler.NewIntentHandler(&cfg.Mpesa, svc, logger)
	webhookHandler := handler.NewMpesaWebhookHandler(svc, logger)

	r.GET("/healthz", handler.Health)

	authMw := middleware.AuthRequired(&cfg.JWT)
	api := r.Group("/api/v1")
	{
		intents := api.Group("/payment-intents")
		intents.POST("", authMw, middleware.RequireRole(&cfg.JWT, auth.RoleOperator), intentHandler.Create)
		intents.GET("/:id", authMw, middleware.RequireRole(&cfg.JWT, auth.RoleOperator, auth.RoleViewer), intentHandler.Get)
		// the websocket authenticates itself, browsers cannot set headers on upgrade
		intents.GET("/:id/ws", ws.ServeIntent(&cfg.JWT, hub, svc, logger))
	}

	// Daraja does not sign callbacks; the webhook stays open.
	r.POST(domain.MpesaWebhookPath, webhookHandler.Handle)

	return r
}

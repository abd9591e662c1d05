package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiketa/tiketa-backend/config"
	"github.com/tiketa/tiketa-backend/internal/handlers"
	"github.com/tiketa/tiketa-backend/internal/middleware"
	"github.com/tiketa/tiketa-backend/internal/notify"
	"github.com/tiketa/tiketa-backend/internal/platform"
	"github.com/tiketa/tiketa-backend/internal/services"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %v", err)
	}

	platformClient := platform.NewClient(&platform.Config{
		BaseURL: cfg.PlatformAPIURL,
		APIKey:  cfg.PlatformAPIKey,
		Timeout: cfg.PlatformTimeout,
	})

	var notifier services.Notifier = notify.NopNotifier{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		notifier = notify.NewPubNubNotifier(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey)
	}

	authService := services.NewAuthService(db, platformClient, cfg.JWTSecret, 0)
	eventService := services.NewEventService(db)
	registrationService := services.NewRegistrationService(db)
	paymentService := services.NewPaymentService(db, platformClient, notifier)
	verificationService := services.NewVerificationService(db)

	r := gin.Default()

	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow)
		r.Use(limiter.Middleware())
	}

	setupRoutes(r, cfg,
		handlers.NewAuthHandler(authService),
		handlers.NewEventHandler(eventService, registrationService),
		handlers.NewTicketHandler(registrationService, verificationService),
		handlers.NewPaymentHandler(paymentService),
	)

	return r.Run(":" + cfg.Port)
}

func setupRoutes(r *gin.Engine, cfg *config.Config, auth *handlers.AuthHandler, events *handlers.EventHandler, tickets *handlers.TicketHandler, payments *handlers.PaymentHandler) {
	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	public := r.Group("/v1")
	{
		public.POST("/auth/signin", auth.SignIn)

		eventPublic := public.Group("/events")
		eventPublic.Use(middleware.OptionalAuth(cfg.JWTSecret))
		{
			eventPublic.GET("", events.List)
			eventPublic.GET("/:id", events.Get)
		}

		// The platform invokes these without a user session.
		paymentPublic := public.Group("/payments")
		{
			paymentPublic.POST("/complete", payments.Complete)
			paymentPublic.POST("/cancel", payments.Cancel)
			paymentPublic.POST("/incomplete", payments.Incomplete)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		protected.POST("/auth/signout", auth.SignOut)

		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", events.Create)
			eventProtected.POST("/:id/register", events.Register)
			eventProtected.GET("/:id/registration", events.CheckRegistration)
			eventProtected.GET("/:id/registrations", events.Registrations)
		}

		ticketProtected := protected.Group("/tickets")
		{
			ticketProtected.GET("", tickets.MyTickets)
			ticketProtected.GET("/:tokenId/qr", tickets.QR)
			ticketProtected.POST("/verify", tickets.Verify)
		}

		protected.POST("/payments/approve", payments.Approve)
	}
}

package app

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"calendar-auth-service/internal/auth/handler"
	"calendar-auth-service/internal/config"
	"calendar-auth-service/internal/google"
	"calendar-auth-service/internal/identity"
	"calendar-auth-service/internal/middleware"
	"calendar-auth-service/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	identityStore := identity.NewPostgresStore(infra.DB)
	sessionStore := session.NewRedisStore(infra.Redis.Client)

	googleClient, err := google.New(
		ctx,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.CalendarMaxResults,
	)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handler.NewHandler(
		googleClient,
		identityStore,
		sessionStore,
		handler.Config{
			SessionSecret:  cfg.SessionSecret,
			FrontendOrigin: cfg.FrontendOrigin,
			SecureCookies:  cfg.Production(),
			SameSite:       cfg.SameSite(),
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, []byte(cfg.SessionSecret))

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
	}))

	authHandler.RegisterRoutes(router, middleware.GinRequireAuth(authMiddleware))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Google Calendar backend running")
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if err := infra.Redis.Close(); err != nil {
			return err
		}
		return infra.DB.Close()
	}, nil
}

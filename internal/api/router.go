package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/phytul/nightingale-platform/internal/auth"
	"github.com/phytul/nightingale-platform/internal/captcha"
	"github.com/phytul/nightingale-platform/internal/handlers"
	"github.com/phytul/nightingale-platform/internal/middleware"
	"github.com/phytul/nightingale-platform/internal/services"
)

// Deps bundles everything the router needs.
type Deps struct {
	Tokens *iauth.TokenService
	Auth   *services.AuthService
	Users  *services.UserService
	Codes  *captcha.Service

	// RateLimit bounds requests per (clientIP, path) per RateWindow.
	// Zero disables the limiter.
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	if deps.Codes == nil {
		return nil, fmt.Errorf("captcha service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if deps.RateLimit > 0 {
		window := deps.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(middleware.RateLimit(deps.RateLimit, window))
	}

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Codes, deps.Users)
	profileHandler := handlers.NewProfileHandler(deps.Users)
	usersHandler := handlers.NewUsersHandler(deps.Users)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/send_code", authHandler.SendCode)
		auth.POST("/login_password", authHandler.LoginPassword)
		auth.POST("/login_code", authHandler.LoginCode)
		auth.POST("/register_code", authHandler.RegisterCode)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens))

	api.GET("/auth/me", authHandler.Me)

	users := api.Group("/users")
	{
		users.GET("", usersHandler.List)
		users.GET("/me", profileHandler.Get)
		users.PATCH("/me", profileHandler.Update)
		users.PUT("/me/password", profileHandler.ChangePassword)
	}

	return r, nil
}

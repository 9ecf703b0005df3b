package http

import (
	"context"
	"net/http"
	"time"

	"dsa-tracker/internal/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	limit "github.com/yangxikun/gin-limit-by-key"
	"golang.org/x/time/rate"
)

// Service is the set of backend use cases the API exposes.
type Service interface {
	Signup(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, accountID string) (domain.User, error)
	Topics(ctx context.Context) ([]domain.Topic, error)
	MarkCompletion(ctx context.Context, accountID string, c domain.Completion) (domain.User, error)
}

// TokenParser resolves a bearer token to an account id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// RateLimit bounds requests per client IP on the /auth routes. A zero Every disables it.
type RateLimit struct {
	Every  time.Duration
	Burst  int
	Expire time.Duration
}

var DefaultAuthRateLimit = RateLimit{Every: 100 * time.Millisecond, Burst: 10, Expire: time.Hour}

// NewRouter wires the tracker API onto a gin engine.
func NewRouter(service Service, tokens TokenParser, authLimit RateLimit) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	router.Use(cors.New(config))

	h := &handler{service: service}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/topics", h.topics)

	authGroup := router.Group("/auth")
	if authLimit.Every > 0 {
		authGroup.Use(rateLimiter(authLimit))
	}
	authGroup.POST("/signup", h.signup)
	authGroup.POST("/login", h.login)
	authGroup.GET("/me", AuthMiddleware(tokens), h.me)

	protected := router.Group("/completed").Use(AuthMiddleware(tokens))
	{
		protected.POST("/mark", h.mark)
	}
	return router
}

func rateLimiter(cfg RateLimit) gin.HandlerFunc {
	return limit.NewRateLimiter(
		func(c *gin.Context) string {
			return c.ClientIP()
		},
		func(c *gin.Context) (*rate.Limiter, time.Duration) {
			return rate.NewLimiter(rate.Every(cfg.Every), cfg.Burst), cfg.Expire
		},
		func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		},
	)
}

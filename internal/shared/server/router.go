package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/analysis"
	"intake-backend/internal/documents"
	"intake-backend/internal/services/health"
	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/config"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/uploads"
	"intake-backend/internal/versions"
)

// RouterDeps holds everything the router mounts.
type RouterDeps struct {
	Config          config.Config
	Issuer          *auth.Issuer
	Health          *health.Service
	UploadHandler   *uploads.Handler
	DocumentHandler *documents.Handler
	VersionHandler  *versions.Handler
	AnalysisHandler *analysis.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status, ok := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, gin.H{"ok": ok, "dependencies": status})
	})

	protected := api.Group("")
	protected.Use(
		middleware.Auth(deps.Issuer),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: middleware.UploadGroup,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
				"UPLOAD":  {Rate: deps.Config.UploadRateLimitRPS, Burst: deps.Config.UploadRateLimitBurst},
			},
		}),
	)
	if deps.UploadHandler != nil {
		deps.UploadHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.VersionHandler != nil {
		deps.VersionHandler.RegisterRoutes(protected)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

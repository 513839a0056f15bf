// Package api exposes search runs over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

// SearchService is the run lifecycle the API drives.
type SearchService interface {
	Start(ctx context.Context, profile models.SearchProfile) (string, error)
	Status(ctx context.Context, subjectID string) status.RunStatus
	Stop(ctx context.Context, subjectID string) error
	Cancel(subjectID string) bool
	Clear(ctx context.Context, subjectID string) bool
	Active(subjectID string) bool
	Providers() []sources.Descriptor
	Stats() scraper.StatsSnapshot
}

// ScheduleService keeps recurring runs in sync with profile edits.
type ScheduleService interface {
	Schedule(profile models.SearchProfile) error
	Jobs() []string
}

// Server serves HTTP requests for the service
type Server struct {
	search    SearchService
	profiles  storage.ProfileStore
	jobs      storage.JobStore
	schedules ScheduleService
	router    *gin.Engine
	logger    *zap.Logger
}

// NewServer creates a new HTTP server and sets up routing. schedules may be
// nil when scheduling is disabled.
func NewServer(search SearchService, profiles storage.ProfileStore, jobs storage.JobStore, schedules ScheduleService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		search:    search,
		profiles:  profiles,
		jobs:      jobs,
		schedules: schedules,
		logger:    logger.Named("api"),
	}
	server.setupRouter()
	return server
}

// setupRouter sets up the HTTP routing
func (server *Server) setupRouter() {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(server.logger))

	router.GET("/health", server.health)

	routerV1 := router.Group("/api/v1")

	// === search runs ===
	routerV1.POST("/profiles/:id/search", server.startSearch)
	routerV1.DELETE("/profiles/:id/search", server.cancelSearch)
	routerV1.GET("/profiles/:id/search/status", server.getSearchStatus)
	routerV1.DELETE("/profiles/:id/search/status", server.clearSearchStatus)
	routerV1.POST("/profiles/:id/search/stop", server.stopSearch)

	// === results ===
	routerV1.GET("/profiles/:id/jobs", server.listJobs)

	// === schedules ===
	routerV1.POST("/profiles/:id/schedule", server.syncSchedule)
	routerV1.GET("/schedules", server.listSchedules)

	// === providers ===
	routerV1.GET("/sources", server.listSources)
	routerV1.GET("/stats", server.getStats)

	server.router = router
}

// Handler returns the routed handler, for use in an http.Server.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Start runs the HTTP server on a given address
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func errorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error()}
}

func (server *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

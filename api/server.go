package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gocoex/app"
	"gocoex/internal"
	"gocoex/internal/config"
	"gocoex/ports"
)

// Server hosts the analysis JSON API
type Server struct {
	router   *gin.Engine
	service  *app.AnalysisService
	resolver ports.ExpressionResolverPort
	defaults config.AnalysisConfig
	workbook string
	logger   *internal.Logger
}

// NewServer creates the API server. The resolver may be nil when workbook
// sources are not available; inline payloads still work. A non-empty
// workbook path serves as the data source for requests that carry neither
// inline values nor their own source.
func NewServer(service *app.AnalysisService, resolver ports.ExpressionResolverPort, defaults config.AnalysisConfig, workbook string, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{
		router:   gin.Default(),
		service:  service,
		resolver: resolver,
		defaults: defaults,
		workbook: workbook,
		logger:   internal.DefaultLogger.Named("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/analyses", s.handleCreateAnalysis)
		v1.GET("/analyses", s.handleListAnalyses)
		v1.GET("/analyses/:id", s.handleGetAnalysis)
		v1.GET("/analyses/:id/result", s.handleGetResult)
		v1.GET("/methods", s.handleListMethods)
	}
}

// Start runs the server on the given address, blocking until it exits
func (s *Server) Start(addr string) error {
	s.logger.Info("analysis API listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for embedding in an http.Server or for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

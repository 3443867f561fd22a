package viewer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gocoex/internal"
	"gocoex/ports"
)

// App is the read-only results viewer. It serves persisted runs as JSON and
// renders per-run HTML reports; analyses are submitted through the main API.
type App struct {
	router *chi.Mux
	runs   ports.RunRepository
	logger *internal.Logger
	port   string
}

// Config holds viewer settings
type Config struct {
	Port string
}

// NewApp creates the viewer over a run repository
func NewApp(config Config, runs ports.RunRepository) *App {
	app := &App{
		router: chi.NewRouter(),
		runs:   runs,
		logger: internal.DefaultLogger.Named("viewer"),
	}
	app.port = config.Port

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)
	a.router.Get("/runs", a.handleListRuns)
	a.router.Get("/runs/{id}", a.handleGetRun)
	a.router.Get("/runs/{id}/report", a.handleRunReport)
}

// Start starts the HTTP server, blocking until it exits
func (a *App) Start() error {
	addr := ":" + a.port
	a.logger.Info("results viewer listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Handler exposes the router for tests
func (a *App) Handler() http.Handler {
	return a.router
}

package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gocoex/adapters/excel"
	"gocoex/adapters/postgres"
	"gocoex/api"
	"gocoex/app"
	"gocoex/internal/config"
	"gocoex/internal/errors"
	"gocoex/internal/migration"
	"gocoex/ports"
	"gocoex/viewer"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// Run migrations
	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Runs stay in memory only unless a database is configured
	var runRepo ports.RunRepository
	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		runRepo = postgres.NewRunRepository(db)
		log.Println("Run persistence enabled")
	} else {
		log.Println("No DATABASE_URL configured, runs will not be persisted")
	}

	// Configure data source
	if appConfig.Paths.WorkbookFile != "" {
		log.Printf("Using workbook data source: %s", appConfig.Paths.WorkbookFile)
	} else {
		log.Println("No workbook configured, requests must inline values or name a source")
	}

	service := app.NewAnalysisService(runRepo, appConfig.Analysis.Workers, appConfig.Analysis.MaxConcurrent)
	resolver := excel.NewWorkbookResolver()
	server := api.NewServer(service, resolver, appConfig.Analysis, appConfig.Paths.WorkbookFile, appConfig.Server.GinMode)

	// The results viewer only makes sense with persisted runs
	if runRepo != nil {
		viewerApp := viewer.NewApp(viewer.Config{Port: appConfig.Viewer.Port}, runRepo)
		go func() {
			log.Printf("🔍 Results viewer starting on :%s", appConfig.Viewer.Port)
			if err := viewerApp.Start(); err != nil {
				log.Printf("❌ Viewer server failed: %v", err)
			}
		}()
	}

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("🚀 Performance profiling server starting on :%s", appConfig.Profiling.Port)
			log.Printf("💡 View profiles: go tool pprof -http=:8081 http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("❌ pprof server failed: %v", err)
			}
		}()
	}

	// Start the server
	log.Printf("🚀 Starting analysis API on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gocoex/adapters/postgres"
	"gocoex/internal/config"
	"gocoex/viewer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !appConfig.Database.Enabled() {
		log.Fatal("The results viewer needs DATABASE_URL, there is nothing to view without persisted runs")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	app := viewer.NewApp(viewer.Config{Port: appConfig.Viewer.Port}, postgres.NewRunRepository(db))

	log.Printf("Starting results viewer on http://localhost:%s", appConfig.Viewer.Port)
	log.Fatal(app.Start())
}

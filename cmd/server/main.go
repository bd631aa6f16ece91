package main

import (
	"context"
	"log"
	"os"

	"github.com/david/topo-radar/internal/api"
	"github.com/david/topo-radar/internal/db"
	"github.com/david/topo-radar/internal/ingest"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	reg, err := ingest.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	kw, err := ingest.LoadKeywords(os.Getenv("KEYWORDS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load keyword config: %v", err)
	}

	pipeline := ingest.NewPipeline(reg, kw, db.NewStore(pool), os.Getenv("DATA_DIR"))

	srv := api.NewServer(pool, pipeline)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}

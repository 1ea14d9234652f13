package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"typingscore/pkg/backend"
	"typingscore/pkg/config"
)

var (
	cfg       config.Config
	jwtSecret []byte // from JWT_SECRET, dev default otherwise
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	jwtSecret = cfg.JWTSecret

	// `./typingscore migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.AutoMigrate = true
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	pipeline, err := backend.NewPipeline(context.Background(), cfg, scores)
	if err != nil {
		log.Fatalf("recognition backend: %v", err)
	}
	submitter = pipeline
	leaderboard = scores
	txStore = scores

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20

	setupRoutes(r)

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"

	"gorm.io/gorm"

	"typingscore/pkg/account"
	"typingscore/pkg/store"
)

var (
	db       *gorm.DB
	scores   *store.Store
	accounts *account.Service
)

func initDB() {
	var err error
	db, err = store.Open(cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}
	scores = store.New(db)
	accounts = account.New(db)

	// Migrate each owner separately so a failure on one doesn't block the other.
	if cfg.AutoMigrate {
		if err := accounts.Migrate(); err != nil {
			log.Printf("migration warning (accounts): %v", err)
		}
		if err := scores.Migrate(); err != nil {
			log.Printf("migration warning (submissions): %v", err)
		}
	}
	seedDB()
}

func seedDB() {
	ctx := context.Background()
	if err := accounts.EnsureRoles(ctx); err != nil {
		log.Printf("failed to seed roles: %v", err)
		return
	}
	if err := accounts.EnsureAdmin(ctx, cfg.AdminUsername, []byte(cfg.AdminPasswordHash)); err != nil {
		log.Printf("failed to seed administrator: %v", err)
	}
	ensureUploadBase()
}

// ensureUploadBase creates the directory uploaded screenshots are stored in.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the base directory for uploaded screenshots (UPLOAD_BASE).
func uploadBaseDir() string {
	if cfg.UploadBase != "" {
		return cfg.UploadBase
	}
	return "uploads"
}

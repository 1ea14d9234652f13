package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"typingscore/pkg/account"
	"typingscore/pkg/config"
	"typingscore/pkg/store"
)

func main() {
	username := flag.String("username", "", "operator to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("--username and --password are required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := account.New(db).ResetPassword(context.Background(), *username, *password); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("Password reset for operator %s\n", *username)
}

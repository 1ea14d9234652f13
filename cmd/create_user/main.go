package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"typingscore/pkg/account"
	"typingscore/pkg/config"
	"typingscore/pkg/store"
)

func main() {
	role := flag.String("role", account.RoleBot, "role of the new operator (bot or administrator)")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-role bot|administrator] <username> <password>")
		os.Exit(2)
	}
	username := flag.Arg(0)
	password := flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := store.Open(cfg.DSN)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	accounts := account.New(db)
	if err := accounts.EnsureRoles(ctx); err != nil {
		log.Fatalf("ensure roles: %v", err)
	}
	op, err := accounts.Register(ctx, username, password, *role)
	if errors.Is(err, account.ErrOperatorExists) {
		fmt.Printf("operator %s already exists\n", username)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to create operator: %v", err)
	}
	fmt.Printf("created operator %s role=%s id=%d\n", op.Username, *role, op.ID)
}

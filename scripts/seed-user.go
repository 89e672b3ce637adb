// Seeds a user account directly in the database, bypassing the HTTP API.
// Useful for provisioning test accounts against a fresh deployment.
//
// Usage:
//
//	go run scripts/seed-user.go -username demo -password demo-password
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/imgpress/imgpress/internal/auth"
	"github.com/imgpress/imgpress/internal/model"
	"github.com/imgpress/imgpress/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		username    = flag.String("username", "", "Username for the new account (1-20 chars)")
		password    = flag.String("password", "", "Password for the new account")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "-username and -password are required")
		os.Exit(1)
	}
	if len(*username) > model.MaxUsernameLength {
		fmt.Fprintf(os.Stderr, "username exceeds %d characters\n", model.MaxUsernameLength)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     *username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	if *format == "json" {
		_ = json.NewEncoder(os.Stdout).Encode(output{UserID: user.ID, Username: user.Username})
		return
	}

	fmt.Printf("created user %s (id %s)\n", user.Username, user.ID)
}

// Package main is the entry point for the SheherJaano API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main"
// package. The main package is kept minimal — its job is to:
// 1. Read configuration (from .env / environment variables)
// 2. Create dependencies (logger, database connection)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server and below).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. A
// project might have multiple executables (e.g., cmd/server, cmd/migrate);
// each gets its own directory with its own main.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sheherjaano/backend/internal/server"
)

func main() {
	// Load .env if present. Real environment variables win over the file,
	// which is exactly what you want in containers: the file is a local-dev
	// convenience, not the production source of truth.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	// slog.NewTextHandler outputs human-readable structured logs to the
	// terminal. Log levels (least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL=debug enables everything; the default Info keeps noise down.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	database := os.Getenv("MONGO_DATABASE")
	if database == "" {
		database = "sheherjaano"
	}

	// Token secrets must be long random strings. Generate with:
	//   openssl rand -hex 32
	accessSecret := os.Getenv("ACCESS_TOKEN_SECRET")
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		logger.Error("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
		os.Exit(1)
	}

	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		MongoURI:           mongoURI,
		Database:           database,
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		GeocodeBaseURL:     os.Getenv("GEOCODE_BASE_URL"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  githubCallbackURL,
	}

	// Bound the MongoDB connect + index build so a bad URI fails fast
	// instead of hanging the process.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	srv, err := server.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// Atlas board MCP server over stdio.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/atlas"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/config"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/mcptools"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/store"
)

func main() {
	// stdout carries the protocol; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	creds := credential.NewStore(cfg.Atlas.TokenFile)
	var provider credential.Provider = creds
	if cfg.Atlas.Token != "" {
		provider = credential.Static(cfg.Atlas.Token)
	}

	client, err := atlas.NewClient(cfg.Atlas.APIURL, provider,
		atlas.WithTimeout(cfg.Atlas.RequestTimeout),
		atlas.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to initialize Atlas client", "error", err)
		os.Exit(1)
	}

	opts := []board.RefresherOption{board.WithRefresherLogger(logger)}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Warn("Snapshot cache unavailable", "error", err)
	} else {
		defer repo.Close()
		opts = append(opts, board.WithSnapshotCache(repo))
	}

	tasks := board.NewStore()
	refresher := board.NewRefresher(client, tasks, opts...)

	srv := mcptools.New(&mcptools.Tools{
		Backend:        client,
		Store:          tasks,
		Refresher:      refresher,
		Coordinator:    board.NewCoordinator(tasks, client, refresher, nil, logger),
		DefaultProject: domain.ID(cfg.Atlas.ProjectID),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("Atlas MCP server starting (stdio)", "api_url", cfg.Atlas.APIURL)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

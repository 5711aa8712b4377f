// Atlas board sync daemon.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/api"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/atlas"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/board"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/chat"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/config"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/credential"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/domain"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/events"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/feeds"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/middleware"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/poller"
	"github.com/Mahad-Saffi/Atlas-AI-Scrum-Master-sub000/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting board sync", "port", cfg.Port, "api_url", cfg.Atlas.APIURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	creds := credential.NewStore(cfg.Atlas.TokenFile)
	if cfg.Atlas.Token != "" {
		if err := creds.Set(credential.TokenKey, cfg.Atlas.Token); err != nil {
			slog.Error("Failed to store token", "error", err)
			os.Exit(1)
		}
	}

	client, err := atlas.NewClient(cfg.Atlas.APIURL, creds,
		atlas.WithTimeout(cfg.Atlas.RequestTimeout),
		atlas.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to initialize Atlas client", "error", err)
		os.Exit(1)
	}

	hub := events.NewHub(cfg.FrontendURL, cfg.IsDevelopment(), logger)
	defer hub.Close()

	// Board.
	tasks := board.NewStore()
	refresher := board.NewRefresher(client, tasks,
		board.WithSnapshotCache(repo),
		board.WithInterval(cfg.Poll.Tasks),
		board.WithRefresherLogger(logger),
	)
	reporter := board.ReporterFunc(func(kind board.ToastKind, message string) {
		hub.Toast(string(kind), message)
	})
	coordinator := board.NewCoordinator(tasks, client, refresher, reporter, logger)

	unsubscribe := tasks.Subscribe(func(snap board.Snapshot) {
		hub.Broadcast(events.Event{Type: events.TypeBoard, Data: board.Project(snap)})
	})
	defer unsubscribe()

	// Side feeds.
	risks := feeds.NewRisks(client, tasks, func(s *domain.RiskSummary) {
		hub.Broadcast(events.Event{Type: events.TypeRisks, Data: s})
	}, logger)
	unread := feeds.NewUnread(client, func(n int) {
		hub.Broadcast(events.Event{Type: events.TypeNotifications, Data: map[string]int{"count": n}})
	}, logger)

	// Chat.
	dialer := chat.TokenDialer(creds, func(token string) (string, error) {
		return client.ChatURL(cfg.Atlas.WSURL, token)
	}, logger)
	chatMgr := chat.NewManager(dialer, client, chat.NewRoster(client),
		chat.WithManagerLogger(logger),
		chat.WithListener(func(kind chat.ChangeKind, state chat.State) {
			if kind == chat.ChangePresence {
				hub.Broadcast(events.Event{Type: events.TypePresence, Data: state.Online})
				return
			}
			hub.Broadcast(events.Event{Type: events.TypeChat, Data: state})
		}),
	)
	defer chatMgr.CloseView()

	hub.SetSnapshot(func() []events.Event {
		evs := []events.Event{{Type: events.TypeBoard, Data: board.Project(tasks.Snapshot())}}
		if n, ok := unread.Count(); ok {
			evs = append(evs, events.Event{Type: events.TypeNotifications, Data: map[string]int{"count": n}})
		}
		return evs
	})

	// Initialize handlers.
	handler := api.NewHandler(api.Deps{
		Backend:   client,
		Repo:      repo,
		Board:     tasks,
		Selector:  refresher,
		Completer: coordinator,
		Refresh:   refresher,
		Risks:     risks,
		Unread:    unread,
		Chat:      chatMgr,
		Events:    hub,
	}, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	handler.RegisterRoutes(r)

	// Event streams are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start pollers.
	taskPoll := refresher.Start(ctx)
	riskPoll := poller.New("risks", cfg.Poll.Risks, risks.Refresh, logger).Start(ctx)
	unreadPoll := poller.New("notifications", cfg.Poll.Notifications, unread.Refresh, logger).Start(ctx)
	slog.Info("Pollers started", "tasks", cfg.Poll.Tasks, "risks", cfg.Poll.Risks, "notifications", cfg.Poll.Notifications)

	go selectInitialProject(ctx, cfg, client, repo, refresher, riskPoll)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	taskPoll.Stop()
	riskPoll.Stop()
	unreadPoll.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// selectInitialProject selects ATLAS_PROJECT_ID, or else the first project
// the user can see. Cached projects are used when the backend is down.
func selectInitialProject(ctx context.Context, cfg *config.Config, client *atlas.Client, repo store.Repository, refresher *board.Refresher, riskPoll *poller.Handle) {
	projectID := domain.ID(cfg.Atlas.ProjectID)

	if projectID.IsZero() {
		projects, err := client.ListProjects(ctx)
		if err == nil {
			if saveErr := repo.SaveProjects(ctx, projects); saveErr != nil {
				slog.Warn("Failed to cache projects", "error", saveErr)
			}
		} else {
			slog.Warn("Failed to list projects, trying cache", "error", err)
			projects, err = repo.LoadProjects(ctx)
			if err != nil {
				slog.Warn("Failed to load cached projects", "error", err)
			}
		}
		if len(projects) == 0 {
			slog.Info("No project to select; waiting for PUT /api/selection")
			return
		}
		projectID = projects[0].ID
	}

	gen := refresher.Select(ctx, projectID)
	riskPoll.Trigger()
	slog.Info("Initial project selected", "project_id", projectID, "generation", gen)
}

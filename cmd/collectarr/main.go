package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/collectarr/collectarr/internal/api"
	"github.com/collectarr/collectarr/internal/auth"
	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/config"
	"github.com/collectarr/collectarr/internal/database"
	"github.com/collectarr/collectarr/internal/dispatch"
	"github.com/collectarr/collectarr/internal/embysync"
	"github.com/collectarr/collectarr/internal/logger"
	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/metadata/tmdb"
	"github.com/collectarr/collectarr/internal/providers/emby"
	"github.com/collectarr/collectarr/internal/providers/mdblist"
	"github.com/collectarr/collectarr/internal/providers/radarr"
	"github.com/collectarr/collectarr/internal/providers/sonarr"
	"github.com/collectarr/collectarr/internal/providers/trakt"
	"github.com/collectarr/collectarr/internal/refresh"
	"github.com/collectarr/collectarr/internal/scheduler"
	"github.com/collectarr/collectarr/internal/scheduler/tasks"
	"github.com/collectarr/collectarr/internal/servers"
	"github.com/collectarr/collectarr/internal/synclog"
	"github.com/collectarr/collectarr/internal/websocket"
)

const clientTimeout = 30 * time.Second

// embyUpdater narrows the sync service to the hook interface the refresh
// job drives; the per-server report is only interesting over HTTP.
type embyUpdater struct {
	*embysync.Service
}

func (u embyUpdater) SyncCollection(ctx context.Context, collectionID string) error {
	_, err := u.Service.SyncCollection(ctx, collectionID)
	return err
}

func main() {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("database", cfg.Database.Path).
		Msg("starting collectarr")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	authService, err := auth.NewService(db.Conn(), cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth")
	}
	if cfg.Auth.AdminPassword != "" && !authService.IsPasswordSet(context.Background()) {
		if err := authService.SetPassword(context.Background(), cfg.Auth.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin password")
		}
		log.Info().Msg("admin password bootstrapped from configuration")
	}

	hub := websocket.NewHub()
	go hub.Run()

	// Stores.
	collectionStore := collection.NewStore(db.Conn(), log.Logger)
	serverStore := servers.NewStore(db.Conn(), log.Logger)
	syncLogStore := synclog.NewStore(db.Conn(), log.Logger)

	// External clients.
	tmdbClient := tmdb.NewClient(tmdb.Config{APIKey: cfg.Providers.TMDBAPIKey}, log.Logger)
	traktClient := trakt.NewClient(trakt.Config{ClientID: cfg.Providers.TraktClientID}, log.Logger)
	mdblistClient := mdblist.NewClient(mdblist.Config{APIKey: cfg.Providers.MDBListAPIKey}, log.Logger)

	resolver := media.NewResolver(tmdbClient, log.Logger)

	registry := refresh.NewRegistry()
	registry.Register(collection.SourceTraktList, traktClient.ListItems)
	registry.Register(collection.SourceTraktWatchlist, traktClient.WatchlistItems)
	registry.Register(collection.SourceMDBList, mdblistClient.ListItems)

	// Services.
	embySyncService := embysync.NewService(
		collectionStore, serverStore, syncLogStore,
		func(srv *servers.Server) embysync.EmbyClient {
			return emby.NewClient(srv.URL, srv.APIKey, clientTimeout, log.Logger)
		},
		hub, log.Logger,
	)
	embySyncService.SetServerTimeout(time.Duration(cfg.Jobs.ServerTimeoutSeconds) * time.Second)

	collectionService := collection.NewService(collectionStore, resolver, log.Logger)
	collectionService.SetDeleteHook(func(ctx context.Context, col *collection.Collection) error {
		return embySyncService.DeleteRemote(ctx, col)
	})

	refreshService := refresh.NewService(
		collectionStore, resolver, registry,
		embyUpdater{embySyncService}, hub, log.Logger,
	)
	collectionService.SetActivityProbe(refreshService.InProgress)

	dispatchService := dispatch.NewService(
		collectionStore, serverStore,
		func(srv *servers.Server) dispatch.RadarrClient {
			return radarr.NewClient(srv.URL, srv.APIKey, clientTimeout, log.Logger)
		},
		func(srv *servers.Server) dispatch.SonarrClient {
			return sonarr.NewClient(srv.URL, srv.APIKey, clientTimeout, log.Logger)
		},
		log.Logger,
	)

	serverService := servers.NewService(serverStore, servers.NewProberFactory(log.Logger), log.Logger)

	// Background jobs.
	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := tasks.RegisterCollectionRefreshTask(sched, refreshService, cfg.Jobs.RefreshTickMinutes); err != nil {
		log.Fatal().Err(err).Msg("failed to register refresh task")
	}
	if err := tasks.RegisterSyncLogCleanupTask(sched, syncLogStore, cfg.Jobs.SyncLogRetentionDays); err != nil {
		log.Fatal().Err(err).Msg("failed to register cleanup task")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(cfg, api.Dependencies{
		Auth:        authService,
		Collections: collectionService,
		Refresh:     refreshService,
		EmbySync:    embySyncService,
		Servers:     serverService,
		Dispatch:    dispatchService,
		SyncLogs:    syncLogStore,
		Scheduler:   sched,
		Hub:         hub,
	}, log.Logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
}

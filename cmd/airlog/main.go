// Package main is the entry point for the Airlog capture backend.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/bus"
	"github.com/lakefm/airlog/internal/capture"
	"github.com/lakefm/airlog/internal/config"
	"github.com/lakefm/airlog/internal/domain/artwork"
	"github.com/lakefm/airlog/internal/domain/playlist"
	"github.com/lakefm/airlog/internal/infra/assets"
	"github.com/lakefm/airlog/internal/infra/feed"
	"github.com/lakefm/airlog/internal/infra/imagecheck"
	"github.com/lakefm/airlog/internal/infra/lookup"
	"github.com/lakefm/airlog/internal/infra/store"
	"github.com/lakefm/airlog/internal/poller"
	"github.com/lakefm/airlog/internal/transport/rest"
	"github.com/lakefm/airlog/internal/transport/socketio"
	"github.com/lakefm/airlog/internal/version"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file (optional)")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load(*configPath)
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Station Playlist Capture Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", cfg.Server.Port).
		Str("feed", cfg.Feed.URL).
		Str("db", cfg.Database.Path).
		Dur("captureInterval", cfg.CaptureInterval()).
		Msg("Configuration")

	// Open the play history archive
	db := store.NewDB(cfg.Database.Path)
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer db.Close()
	dao := store.NewDAO(db)

	// Shared infrastructure
	feedClient := feed.NewClient(cfg.Feed.URL,
		feed.WithHTTPClient(&http.Client{Timeout: cfg.FeedTimeout()}))
	checker := imagecheck.NewChecker()
	pool := assets.NewPoolLoader(cfg.Art.PoolDir, cfg.Art.PoolBaseURL)
	providers := []artwork.LookupProvider{
		lookup.NewITunesClient(),
		lookup.NewMusicBrainzClient(),
	}

	// The archive pipeline stores only real art; the display resolver may
	// also fall back to the curated pool.
	archiveResolver := artwork.NewResolver(
		artwork.WithCache(dao),
		artwork.WithProviders(providers...),
		artwork.WithChecker(checker),
		artwork.WithBundled(cfg.Art.BundledPath),
		artwork.WithHighDensity(cfg.Art.HighDensity),
	)
	displayResolver := artwork.NewResolver(
		artwork.WithCache(dao),
		artwork.WithProviders(providers...),
		artwork.WithChecker(checker),
		artwork.WithPool(pool.URLs),
		artwork.WithBundled(cfg.Art.BundledPath),
		artwork.WithHighDensity(cfg.Art.HighDensity),
	)

	// Capture pipeline and scheduler
	detector := playlist.NewDetector(dao)
	pipeline := capture.NewPipeline(feedClient, dao, archiveResolver, detector)
	scheduler := capture.NewScheduler(pipeline, cfg.CaptureInterval())

	// Now-playing poller and event bus
	events := bus.New[poller.Snapshot](8)
	nowPlaying := poller.NewPoller(feedClient, displayResolver, events,
		poller.WithChecker(checker),
		poller.WithPool(pool.URLs),
	)

	// Socket.io server
	socketServer, err := socketio.NewServer(nowPlaying, events, cfg.Display.MaxExternal)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	// REST API
	apiServer := rest.NewServer(dao, pipeline, nowPlaying)
	apiServer.Mount("/socket.io", socketServer)
	apiServer.Mount(cfg.Art.PoolBaseURL,
		http.StripPrefix(cfg.Art.PoolBaseURL, http.FileServer(http.Dir(cfg.Art.PoolDir))))
	if cfg.Server.StaticDir != "" {
		log.Info().Str("dir", cfg.Server.StaticDir).Msg("Serving static files")
		apiServer.Mount("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Run(ctx)
	go nowPlaying.Run(ctx)
	go socketServer.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+cfg.Server.Port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

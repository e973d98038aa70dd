package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/api"
	"github.com/log-viewer/backend/internal/cache"
	"github.com/log-viewer/backend/internal/config"
	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "logviewer.yaml"

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	// Load YAML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Advanced.LogLevel)

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.NewDuckStore(cfg.GetDatabasePath(), storage.Options{
		MemoryLimit:        cfg.Advanced.DuckDBMemoryLimit,
		Threads:            cfg.Advanced.DuckDBThreads,
		MaxConcurrentReads: cfg.Advanced.MaxConcurrentReads,
	})
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Parsed-content cache with background cleanup of idle logs
	contentCache := cache.New(cfg.Cache.MaxEntries)
	if idle := cfg.CacheIdleTimeout(); idle > 0 {
		go contentCache.RunCleanup(ctx, cfg.CacheCleanupInterval(), idle)
	}

	service := tools.NewService(store, contentCache, queryLimits(cfg))
	registry := tools.NewRegistry(service)
	hub := api.NewFeedHub(store, service, cfg.Advanced.FeedLatestEntries, int64(cfg.Advanced.WebSocketMaxMessageSize)*1024)

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, cfg)

	handlers := api.NewHandlers(&api.Dependencies{
		Store:         store,
		Service:       service,
		Registry:      registry,
		Hub:           hub,
		Version:       Version,
		AllowDeletion: cfg.Security.AllowDeletion,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Configure server with settings from YAML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	database := cfg.GetDatabasePath()
	if database == "" {
		database = "(in memory)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Log Viewer Server                               ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", database)
	fmt.Printf("║  Tools:     %-46d║\n", len(registry.Names()))
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

// resolveConfigPath returns $LOGVIEWER_CONFIG, or the config file beside the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("LOGVIEWER_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), configFileName), nil
}

func queryLimits(cfg *config.AppConfig) tools.Limits {
	verbosity, ok := models.ParseVerbosity(cfg.Query.DefaultVerbosity)
	if !ok {
		verbosity = models.VerbosityStandard
	}
	return tools.Limits{
		DefaultLimit:     cfg.Query.DefaultLimit,
		LatestLimit:      cfg.Query.LatestLimit,
		MaxLimit:         cfg.Query.MaxLimit,
		MaxContextLines:  cfg.Query.MaxContextLines,
		MaxLogsPerQuery:  cfg.Query.MaxLogsPerQuery,
		DefaultVerbosity: verbosity,
		Parallelism:      cfg.Processing.MaxConcurrentParses,
	}
}

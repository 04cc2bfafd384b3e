package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/plc-ladder/backend/internal/api"
	"github.com/plc-ladder/backend/internal/autosave"
	"github.com/plc-ladder/backend/internal/catalog"
	"github.com/plc-ladder/backend/internal/config"
	"github.com/plc-ladder/backend/internal/journal"
	"github.com/plc-ladder/backend/internal/session"
	"github.com/plc-ladder/backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "LadderEditor.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	api.ShowErrorDetails = strings.EqualFold(cfg.Advanced.LogLevel, "debug")

	// Component palette
	palette := catalog.Default()
	if cfg.Storage.CatalogFile != "" {
		palette, err = catalog.Load(cfg.Storage.CatalogFile)
		if err != nil {
			fmt.Printf("Failed to load catalog: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded component catalog from %s\n", cfg.Storage.CatalogFile)
	}

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.Storage.ProjectsDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Optional operation journal. The interface values stay nil when
	// disabled so handlers can detect it.
	var (
		journalStore  *journal.Store
		sessionJrnl   session.Journal
		journalReader api.JournalReader
	)
	if cfg.Editor.EnableJournal {
		journalStore, err = journal.Open(cfg.Storage.JournalDirectory)
		if err != nil {
			fmt.Printf("Failed to open journal: %v\n", err)
			os.Exit(1)
		}
		journalStore.SetBatchSize(cfg.Processing.JournalBatchSize)
		sessionJrnl = journalStore
		journalReader = journalStore
	}

	// Optional autosave snapshots
	var (
		snapshotStore *autosave.Store
		scheduler     *autosave.Scheduler
		autosaver     session.Autosaver
		snapshots     api.SnapshotLoader
	)
	if cfg.Editor.EnableAutosave {
		storeCfg := autosave.DefaultConfig(cfg.Storage.AutosaveDirectory)
		storeCfg.Verbose = cfg.Advanced.VerboseStorageLogging
		snapshotStore, err = autosave.Open(storeCfg)
		if err != nil {
			fmt.Printf("Failed to open autosave store: %v\n", err)
			os.Exit(1)
		}
		scheduler = autosave.NewScheduler(snapshotStore, cfg.AutosaveDelay())
		autosaver = scheduler
		snapshots = snapshotStore
	}

	// Initialize session manager
	sessionMgr := session.NewManager(session.Options{
		HistoryLimit: cfg.Editor.HistoryLimit,
		MaxSessions:  cfg.Editor.MaxSessions,
		Journal:      sessionJrnl,
		Autosaver:    autosaver,
		Catalog:      palette,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(cfg.SessionTimeout()); n > 0 {
					fmt.Printf("[Cleanup] Closed %d idle sessions\n", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				strings.HasPrefix(path, "/api/ws/") ||
				path == "/api/health" ||
				path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout",
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}
	e.Use(middleware.Decompress())

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{
				"http://localhost:5173", "http://127.0.0.1:5173",
				"http://localhost:3000", "http://127.0.0.1:3000",
			}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.SetupMiddleware(e)

	handlers := api.NewHandlers(&api.Dependencies{
		Store:            fileStore,
		SessionMgr:       sessionMgr,
		Journal:          journalReader,
		Snapshots:        snapshots,
		Version:          Version,
		WSMaxMessageKB:   cfg.Advanced.WebSocketMaxMessageSize,
		AllowedFileTypes: cfg.FileTypes(),
	})
	api.RegisterRoutes(e, handlers, api.RouteOptions{
		AllowFileDeletion: cfg.Security.AllowFileDeletion,
	})

	if cfg.Advanced.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Ladder Logic Editor Server                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Journal:   %-46t║\n", cfg.Editor.EnableJournal)
	fmt.Printf("║  Autosave:  %-46t║\n", cfg.Editor.EnableAutosave)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Server error: %v\n", err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}

	// Closing sessions flushes pending autosaves and journals the close.
	sessionMgr.CloseAll()
	if scheduler != nil {
		scheduler.Stop()
	}
	if snapshotStore != nil {
		if err := snapshotStore.Close(); err != nil {
			fmt.Printf("Failed to close autosave store: %v\n", err)
		}
	}
	if journalStore != nil {
		if err := journalStore.Close(); err != nil {
			fmt.Printf("Failed to close journal: %v\n", err)
		}
	}
}

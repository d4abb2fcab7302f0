// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"mepbackend/internal/catalog"
	"mepbackend/internal/cleanup"
	"mepbackend/internal/config"
	"mepbackend/internal/data"
	"mepbackend/internal/export"
	"mepbackend/internal/logger"
	"mepbackend/internal/middleware"
	"mepbackend/internal/session"
)

type App struct {
	addr          string
	mux           *http.ServeMux
	connections   sync.WaitGroup
	totalRequests int64
}

func main() {
	// Step 1: Setup configuration first
	config.LoadEnv()
	config.ConfigurePaths()

	// Step 2: Setup logging
	loggerConfig := config.LoggerConfig()
	if err := logger.SetupLogger(loggerConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Only NOW is logging safe to use!
	logger.LogInfo("Environment and paths loaded. Logger ready.")
	config.LogCurrentEnvironment()
	config.LoadCORSConfig()

	// Step 3: Open the store
	if err := os.MkdirAll(config.DataDirectory(), 0775); err != nil {
		logger.LogFatal("Failed to create data directory: %v", err)
	}
	if err := data.InitDB(config.DBPath()); err != nil {
		logger.LogFatal("Failed to open store: %v", err)
	}
	defer data.CloseDB()
	if err := data.CreateTables(); err != nil {
		logger.LogFatal("Failed to create store tables: %v", err)
	}

	// Step 4: Build the live catalog
	catalogService := catalog.NewService()
	if err := loadCatalog(catalogService); err != nil {
		logger.LogFatal("Failed to load catalog: %v", err)
	}
	logger.LogInfo("Catalog ready with %d products", catalogService.Count())

	catalog.SetService(catalogService)
	session.SetCatalogService(catalogService)
	export.SetCatalogService(catalogService)

	// Step 5: Watch the seed file for edits
	startSeedWatcher(catalogService)

	// Step 6: Prune old export artifacts
	cleanup.PruneExports(config.ExportDirectory(), config.ExportRetentionDays)

	// Step 7: Run server
	app := &App{
		addr: serverAddress(),
		mux:  routes(),
	}
	app.Run()
}

// loadCatalog fills the in-memory catalog from the store, seeding the
// store from the seed file when both are present and the store is empty.
func loadCatalog(service *catalog.Service) error {
	products, err := data.AllProducts()
	if err != nil {
		return err
	}

	if len(products) > 0 {
		service.Replace(products)
		return nil
	}

	seedPath := config.SeedFilePath()
	if _, err := os.Stat(seedPath); err != nil {
		logger.LogInfo("Store empty and no seed file at %s, starting with an empty catalog", seedPath)
		return nil
	}

	if err := service.LoadFromSeedFile(seedPath); err != nil {
		return err
	}
	persistCatalog(service)
	return nil
}

// persistCatalog upserts every catalog product. Per-document upserts, so
// a failure mid-loop leaves earlier products saved; each miss is logged.
func persistCatalog(service *catalog.Service) {
	for _, p := range service.Products() {
		if err := data.UpsertProduct(p); err != nil {
			logger.LogError("Failed to persist product %q: %v", p.Name, err)
		}
	}
}

func startSeedWatcher(service *catalog.Service) {
	seedPath := config.SeedFilePath()
	if _, err := os.Stat(seedPath); err != nil {
		logger.LogInfo("No seed file to watch at %s", seedPath)
		return
	}

	watcher, err := catalog.NewSeedWatcher(seedPath, service, func() {
		persistCatalog(service)
	})
	if err != nil {
		logger.LogWarn("Seed watcher unavailable: %v", err)
		return
	}

	go watcher.Watch()
	logger.LogInfo("Watching seed file %s for changes", seedPath)
}

// serverAddress builds the server address from environment variables
func serverAddress() string {
	host := os.Getenv("SERVER_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "5071"
	}
	return host + ":" + port
}

// routes sets up all API routes
func routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/session", middleware.APIMiddleware(session.GetSessionHandler))
	apiMux.HandleFunc("/session/rows", middleware.APIMiddleware(session.AddRowHandler))
	apiMux.HandleFunc("/session/rows/remove", middleware.APIMiddleware(session.RemoveRowHandler))
	apiMux.HandleFunc("/session/check", middleware.APIMiddleware(session.CheckHandler))
	apiMux.HandleFunc("/session/todos", middleware.APIMiddleware(session.TodosHandler))
	apiMux.HandleFunc("/session/reset", middleware.APIMiddleware(session.ResetHandler))
	apiMux.HandleFunc("/progress", middleware.APIMiddleware(session.ProgressHandler))
	apiMux.HandleFunc("/days", middleware.APIMiddleware(session.DaysHandler))
	apiMux.HandleFunc("/export", middleware.APIMiddleware(export.ExportHandler))
	apiMux.HandleFunc("/products", middleware.APIMiddleware(productsDispatch))
	apiMux.HandleFunc("/products/rename", middleware.APIMiddleware(catalog.RenameProductHandler))
	apiMux.HandleFunc("/products/duplicate", middleware.APIMiddleware(catalog.DuplicateProductHandler))
	apiMux.HandleFunc("/products/delete", middleware.APIMiddleware(catalog.DeleteProductHandler))
	apiMux.HandleFunc("/products/items", middleware.APIMiddleware(catalog.ItemsHandler))
	apiMux.HandleFunc("/products/subtasks", middleware.APIMiddleware(catalog.SubtasksHandler))
	apiMux.HandleFunc("/products/tasks", middleware.APIMiddleware(catalog.TasksHandler))
	apiMux.HandleFunc("/stats", middleware.APIMiddleware(catalog.StatsHandler))

	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	return mux
}

// productsDispatch splits /products between listing and upserting
func productsDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		catalog.ListProductsHandler(w, r)
		return
	}
	catalog.UpsertProductHandler(w, r)
}

// Run starts the HTTP server
func (a *App) Run() {
	server := &http.Server{
		Addr:         a.addr,
		Handler:      a.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in a separate goroutine
	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	// Wait for a shutdown signal
	<-stop
	logger.LogInfo("Shutdown signal received")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server gracefully
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	} else {
		logger.LogInfo("Server shut down gracefully")
	}

	// Wait for active connections to finish
	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("All connections closed. Total requests handled: %d", atomic.LoadInt64(&a.totalRequests))
}

// Handler assembles all middleware around the main mux
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = a.trackConnections(handler)
	handler = logRequests(handler)
	handler = withTimeout(handler, 15*time.Second)

	return handler
}

// Middleware: timeout handler
func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

// Middleware: log requests
func logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		h.ServeHTTP(w, r)

		duration := time.Since(start)
		logger.LogInfo("%s %s took %v", r.Method, r.URL.Path, duration)
	})
}

// Middleware: track active connections and total requests
func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		atomic.AddInt64(&a.totalRequests, 1)
		defer a.connections.Done()

		h.ServeHTTP(w, r)
	})
}

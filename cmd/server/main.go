package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/fetchd/api"
	"github.com/yourusername/fetchd/internal/app"
	"github.com/yourusername/fetchd/internal/infrastructure"
	"github.com/yourusername/fetchd/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting fetchd server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("download_dir", config.Download.Dir))

	// Create directories
	for _, dir := range []string{config.Download.Dir, filepath.Dir(config.Store.DatabasePath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	// Initialize progress store
	store, err := infrastructure.NewSQLiteProgressStore(config.Store.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize progress store", zap.Error(err))
	}
	defer store.Close()

	// Initialize downloader and coordinator
	client := infrastructure.NewHTTPClient(config.Download.RequestTimeout)
	downloader := infrastructure.NewHTTPDownloader(store, client, &config.Download, log)
	coordinator := app.NewCoordinator(store, downloader, &config.Download, log)

	// Start the coordinator; this also resumes downloads interrupted by a
	// previous crash or shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coordinator.Start(ctx); err != nil {
		log.Fatal("Failed to start coordinator", zap.Error(err))
	}

	// Setup HTTP router
	router := api.SetupRouter(coordinator, store, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// In-flight transfers are abandoned; their progress records stay
	// valid and resume on the next start.
	if err := coordinator.Stop(); err != nil {
		log.Error("Error stopping coordinator", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

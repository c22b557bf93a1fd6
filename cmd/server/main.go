package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/bag-of-holding/backend/internal/api"
	"github.com/codyseavey/bag-of-holding/backend/internal/config"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize services
	store, err := services.NewSessionStore(cfg.SessionCacheSize)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	importer := services.NewHelvaultImporter(cfg.TempDir, cfg.Debug)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Imports and queries run on the background worker
	importWorker := worker.NewWorker(importer, store, cfg.WorkerQueueSize)
	importWorker.Start(ctx)
	client := worker.NewClient(importWorker)

	// Optionally import exports dropped into a directory
	if cfg.HelvaultWatchDir != "" {
		watcher := services.NewExportWatcher(cfg.HelvaultWatchDir, func(ctx context.Context, path string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			_, err = client.LoadHelvault(ctx, data, path)
			return err
		})
		go runWatcher(ctx, watcher)
	}

	router := api.SetupRouter(cfg, store, client)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop the watcher and fail anything still waiting on the worker
	cancel()
	client.Terminate()

	log.Println("Server exited")
}

// runWatcher keeps the export watcher alive, restarting it after a panic or
// an error until ctx is cancelled
func runWatcher(ctx context.Context, watcher *services.ExportWatcher) {
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("PANIC in export watcher: %v - restarting in 30 seconds", r)
				}
			}()
			if err := watcher.Start(ctx); err != nil {
				log.Printf("Export watcher stopped: %v - restarting in 30 seconds", err)
			}
		}()

		select {
		case <-ctx.Done():
			return // Graceful shutdown
		case <-time.After(30 * time.Second):
			log.Println("Export watcher restarting...")
		}
	}
}

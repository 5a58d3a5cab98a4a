package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/gait.report/internal/api"
	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/report"
)

func handleServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "HTTP listen address")
	dbPath := fs.String("db", "", "Run database; without it analyses are not stored")
	configPath := fs.String("config", "", "Tuning JSON file (default: built-in values)")
	assetsHost := fs.String("assets-host", "", "Override the chart JavaScript asset host")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.EmptyGaitConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadGaitConfig(*configPath); err != nil {
			return err
		}
	}

	var store *db.DB
	if *dbPath != "" {
		var err error
		if store, err = db.NewDB(*dbPath); err != nil {
			return fmt.Errorf("open run database: %w", err)
		}
		defer store.Close()
	}

	srv := api.NewServer(store, gait.OptionsFromConfig(cfg))
	srv.SetChartOptions(report.ChartOptions{AssetsHost: *assetsHost})
	mux, err := srv.ServeMux()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Initial config load failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Server has gracefully shut down.")
}

// run binds every listener, serves until ctx is cancelled or a server fails,
// then shuts all of them down within cfg.ShutdownTimeout.
func run(ctx context.Context, cfg Config) error {
	var m *metrics
	if cfg.MetricsAddr != "" {
		m = newMetrics()
	}

	listeners, err := bindAll(cfg, newRouter(m), m)
	if err != nil {
		return err
	}
	log.Printf("Running on http://%s", cfg.Addr())

	errc := make(chan error, len(listeners))
	for _, l := range listeners {
		go func() {
			errc <- l.serve()
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	for _, l := range listeners {
		if err := l.srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return serveErr
}

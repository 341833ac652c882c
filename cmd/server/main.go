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

	"github.com/me/galahad/internal/config"
	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/internal/server"
	"github.com/me/galahad/internal/store"
	"github.com/me/galahad/pkg/galaxy"
)

func main() {
	configFile := flag.String("config", "", "Config file (default ~/.galahad/config.yaml)")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	galaxyURL := flag.String("galaxy", "", "Galaxy server URL (overrides galaxy.url)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	noCache := flag.Bool("no-cache", false, "Disable the tool schema cache")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *galaxyURL != "" {
		cfg.Galaxy.URL = *galaxyURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *noCache {
		cfg.Cache.Disabled = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	if cfg.Galaxy.APIKey == "" {
		if key, err := galaxy.ResolveAPIKey(cfg.Galaxy.URL); err == nil {
			cfg.Galaxy.APIKey = key
		} else {
			logger.Info("no Galaxy API key; running anonymously", "hint", "set GALAXY_API_KEY or run galahad login")
		}
	}
	client := galaxy.NewClient(cfg.GalaxyClient(), logger)

	serverOpts := []server.Option{server.WithGalaxy(client)}

	if cfg.Overrides != "" {
		overrides, err := form.LoadOverrides(cfg.Overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load overrides: %v\n", err)
			os.Exit(1)
		}
		serverOpts = append(serverOpts, server.WithOverrides(overrides))
		logger.Info("parameter overrides loaded", "path", cfg.Overrides, "params", len(overrides))
	}

	var source form.SchemaSource = client
	if !cfg.Cache.Disabled {
		if cfg.Cache.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "cannot create cache directory: %v\n", err)
				os.Exit(1)
			}
		}
		st, err := store.NewSQLiteStore(cfg.Cache.Path, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open schema cache: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.Migrate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "migrate schema cache: %v\n", err)
			os.Exit(1)
		}
		logger.Info("schema cache ready", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL)

		source = store.NewCachedSource(client, st, galaxy.ServerName(cfg.Galaxy.URL), cfg.Cache.TTL, logger)
		serverOpts = append(serverOpts, server.WithSchemaStore(st))
	}

	srv := server.New(cfg, source, logger, serverOpts...)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "galaxy", cfg.Galaxy.URL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

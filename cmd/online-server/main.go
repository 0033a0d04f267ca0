// Online network server.
// Runs the online network session and provides REST + WebSocket endpoints
// for the downloaded clients, controllers and servers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/navmap-online/internal/airspace"
	"github.com/unklstewy/navmap-online/internal/online"
	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/download"
	"github.com/unklstewy/navmap-online/pkg/log"
)

var (
	configPath  = flag.String("config", "configs/config.json", "Path to configuration file")
	port        = flag.String("port", "", "HTTP server port (overrides configuration)")
	acceptSSL   = flag.Bool("accept-ssl", false, "Continue downloads with certificate errors")
	rememberSSL = flag.Bool("remember-ssl", false, "Save an accepted certificate decision")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	lg := log.New("online-server", cfg.Logging.Level, cfg.Logging.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("Server failed", "error", err)
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg *log.Logger) error {
	database, err := onlinedb.ConnectWithRetry(ctx, cfg.Database, 5, 2*time.Second, lg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	mgr, err := onlinedb.NewManager(database, cfg.Database.CacheSize, lg)
	if err != nil {
		return err
	}

	dl := download.NewClient(downloadOptions(cfg, lg))

	var airspaces online.AirspaceSource
	if cfg.Online.AirspaceFile != "" {
		src, err := airspace.Load(cfg.Online.AirspaceFile)
		if err != nil {
			lg.Warn("Cannot load airspaces", "error", err)
		} else {
			airspaces = src
		}
	}

	conf := newConfigStore(cfg, *configPath, lg)
	hub := NewHub(lg)
	sim := &remoteSimulator{}

	controller, err := online.New(online.Options{
		Config:      cfg,
		Downloader:  dl,
		Manager:     mgr,
		Listener:    hub,
		Simulator:   sim,
		Airspaces:   airspaces,
		SSLDecider:  policyDecider{accept: *acceptSSL, remember: *rememberSSL, lg: lg},
		RememberSSL: conf.RememberSSL,
		Logger:      lg,
	})
	if err != nil {
		return err
	}

	srv := NewServer(conf, controller, mgr, sim, hub, lg)
	httpServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     srv,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(ctx)
	})
	g.Go(func() error {
		lg.Info("Server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		lg.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	controller.StartProcessing()

	err = g.Wait()
	if cerr := controller.Close(); cerr != nil {
		lg.Warn("Cannot purge online data", "error", cerr)
	}
	lg.Info("Server stopped")
	return err
}

func downloadOptions(cfg *config.Config, lg *log.Logger) download.Options {
	opts := download.Options{
		Timeout:     time.Duration(cfg.Online.TimeoutSeconds) * time.Second,
		MinInterval: time.Duration(cfg.Online.RateLimitSeconds * float64(time.Second)),
		Logger:      lg,
	}
	if cfg.Online.DownloadCacheSeconds > 0 {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		opts.Cache = download.NewCache(filepath.Join(dir, "navmap-online"), time.Duration(cfg.Online.DownloadCacheSeconds)*time.Second)
	}
	return opts
}

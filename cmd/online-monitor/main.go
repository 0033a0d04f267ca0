// Online network monitor.
// Runs an online network session in the terminal and shows connection
// state, client counts and network messages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/unklstewy/navmap-online/internal/airspace"
	"github.com/unklstewy/navmap-online/internal/online"
	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/download"
	"github.com/unklstewy/navmap-online/pkg/log"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	network    = flag.String("network", "", "Online network (overrides configuration)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *network != "" {
		cfg.Online.Network = *network
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the program, so only log to file
	lg := log.New("online-monitor", cfg.Logging.Level, cfg.Logging.Dir)

	if err := run(cfg, lg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := onlinedb.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	mgr, err := onlinedb.NewManager(database, cfg.Database.CacheSize, lg)
	if err != nil {
		return err
	}

	var p *tea.Program
	// Send blocks until the program runs
	send := func(msg tea.Msg) { go p.Send(msg) }

	opts := online.Options{
		Config:     cfg,
		Downloader: download.NewClient(download.Options{
			Timeout:     time.Duration(cfg.Online.TimeoutSeconds) * time.Second,
			MinInterval: time.Duration(cfg.Online.RateLimitSeconds * float64(time.Second)),
			Logger:      lg,
		}),
		Manager:    mgr,
		Listener:   programListener{send: send},
		SSLDecider: promptDecider{send: send},
		RememberSSL: func() {
			cfg.Online.IgnoreSSLErrors = true
			if err := cfg.Save(*configPath); err != nil {
				lg.Warn("Cannot save certificate decision", "error", err)
			}
		},
		Logger: lg,
	}
	if cfg.Online.AirspaceFile != "" {
		if src, err := airspace.Load(cfg.Online.AirspaceFile); err != nil {
			lg.Warn("Cannot load airspaces", "error", err)
		} else {
			opts.Airspaces = src
		}
	}

	controller, err := online.New(opts)
	if err != nil {
		return err
	}

	p = tea.NewProgram(newModel(controller, mgr), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		final, err := p.Run()
		if m, ok := final.(model); ok {
			m.cancelPrompt()
		}
		return err
	})

	controller.StartProcessing()

	err = g.Wait()
	if cerr := controller.Close(); cerr != nil {
		lg.Warn("Cannot purge online data", "error", cerr)
	}
	return err
}

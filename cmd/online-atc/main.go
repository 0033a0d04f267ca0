// Online ATC browser.
// Lists the controllers and servers stored by a running online session.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/log"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	refresh := flag.Duration("refresh", 15*time.Second, "Reload interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lg := log.New("online-atc", cfg.Logging.Level, cfg.Logging.Dir)

	database, err := onlinedb.Connect(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	mgr, err := onlinedb.NewManager(database, cfg.Database.CacheSize, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}

	app := NewApp(mgr, *refresh, lg)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

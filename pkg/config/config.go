package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Online network selections.
const (
	NetworkNone         = "none"
	NetworkVATSIM       = "vatsim"
	NetworkIVAO         = "ivao"
	NetworkPilotEdge    = "pilotedge"
	NetworkCustom       = "custom"
	NetworkCustomStatus = "custom_status"
)

// Payload format names as used in configuration files.
const (
	FormatVATSIM     = "vatsim"
	FormatVATSIMJSON = "vatsim_json"
	FormatIVAO       = "ivao"
	FormatIVAOJSON   = "ivao_json"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON file with environment overrides.
type Config struct {
	Online    OnlineConfig             `json:"online"`
	Networks  map[string]NetworkPreset `json:"networks"`
	Display   DisplayConfig            `json:"display"`
	Database  DatabaseConfig           `json:"database"`
	Logging   LoggingConfig            `json:"logging"`
	Server    ServerConfig             `json:"server"`
	Simulator SimulatorConfig          `json:"simulator"`
}

// OnlineConfig contains the online network selection and download options.
type OnlineConfig struct {
	// Network is one of none, vatsim, ivao, pilotedge, custom or custom_status
	Network string `json:"network"`

	// Format is the payload format for custom networks
	// (vatsim, vatsim_json, ivao, ivao_json). Named networks use their preset.
	Format string `json:"format"`

	// StatusURL is the status document used by the custom_status network
	StatusURL string `json:"status_url"`

	// WhazzupURL is the whazzup document used by the custom network
	WhazzupURL string `json:"whazzup_url"`

	// TransceiverURL overrides the preset transceiver document URL
	TransceiverURL string `json:"transceiver_url"`

	// ReloadSeconds is the re-poll interval for custom networks.
	// -1 means use the reload hint from the whazzup payload.
	ReloadSeconds int `json:"reload_seconds"`

	// TransceiverReloadSeconds is the maximum age of transceiver data.
	// -1 selects the default of 300 seconds.
	TransceiverReloadSeconds int `json:"transceiver_reload_seconds"`

	// Verbose enables debug logging of every state transition
	Verbose bool `json:"verbose"`

	// IgnoreSSLErrors is the remembered answer to certificate prompts
	IgnoreSSLErrors bool `json:"ignore_ssl_errors"`

	// NoUserAgent suppresses the default short user agent
	NoUserAgent bool `json:"no_user_agent"`

	// AirspaceByName looks up ATC boundaries by callsign and facility
	AirspaceByName bool `json:"airspace_by_name"`

	// AirspaceByFile looks up ATC boundaries in the user airspace file
	AirspaceByFile bool `json:"airspace_by_file"`

	// AirspaceFile is a JSON file mapping callsigns to boundaries
	AirspaceFile string `json:"airspace_file"`

	// DownloadCacheSeconds keeps downloaded payloads on disk for development.
	// 0 disables the cache.
	DownloadCacheSeconds int `json:"download_cache_seconds"`

	// RateLimitSeconds is the minimum time between two requests
	RateLimitSeconds float64 `json:"rate_limit_seconds"`

	// TimeoutSeconds is the HTTP client timeout
	TimeoutSeconds int `json:"timeout_seconds"`

	// KeepDataOnExit suppresses purging stored network data on shutdown
	KeepDataOnExit bool `json:"keep_data_on_exit"`
}

// NetworkPreset describes the endpoints of a named online network.
type NetworkPreset struct {
	Name           string `json:"name"`
	StatusURL      string `json:"status_url,omitempty"`
	WhazzupURL     string `json:"whazzup_url,omitempty"`
	TransceiverURL string `json:"transceiver_url,omitempty"`
	Format         string `json:"format"`

	// ReloadSeconds is the re-poll interval, -1 for automatic
	ReloadSeconds int `json:"reload_seconds"`
}

// DisplayConfig holds the displayed diameter of each ATC facility type
// in nautical miles. -1 selects the payload's visual range.
type DisplayConfig struct {
	Observer  int `json:"observer"`
	FIR       int `json:"fir"`
	Clearance int `json:"clearance"`
	Ground    int `json:"ground"`
	Tower     int `json:"tower"`
	Approach  int `json:"approach"`
	Area      int `json:"area"`
	Departure int `json:"departure"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (sqlite3, postgres)
	Driver string `json:"driver"`

	// Path is the SQLite database file
	Path string `json:"path"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`

	// CacheSize is the number of entries of each record lookup cache
	CacheSize int `json:"cache_size"`
}

// LoggingConfig selects log level and directory.
type LoggingConfig struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// SimulatorConfig contains simulator connection options.
type SimulatorConfig struct {
	// DebugUserAircraft adds AI aircraft to the duplicate check even
	// when no simulator is connected
	DebugUserAircraft bool `json:"debug_user_aircraft"`
}

// Network is the effective download configuration after applying presets.
type Network struct {
	Name                     string
	Format                   string
	StatusURL                string
	WhazzupURL               string
	TransceiverURL           string
	ReloadSeconds            int
	TransceiverReloadSeconds int
}

// IsCustom reports whether the network is user defined.
func (n Network) IsCustom() bool {
	return n.Name == NetworkCustom || n.Name == NetworkCustomStatus
}

// ResolveNetwork merges the selected network preset with the online options.
// Named networks take URLs, format and reload from their preset. Custom
// networks use the online section verbatim: custom only knows a whazzup URL
// and custom_status only a status URL.
func (c *Config) ResolveNetwork() Network {
	n := Network{
		Name:                     c.Online.Network,
		TransceiverReloadSeconds: c.Online.TransceiverReloadSeconds,
	}
	if n.Name == "" {
		n.Name = NetworkNone
	}

	switch n.Name {
	case NetworkNone:
	case NetworkCustom:
		n.Format = c.Online.Format
		n.WhazzupURL = c.Online.WhazzupURL
		n.ReloadSeconds = c.Online.ReloadSeconds
	case NetworkCustomStatus:
		n.Format = c.Online.Format
		n.StatusURL = c.Online.StatusURL
		n.ReloadSeconds = c.Online.ReloadSeconds
	default:
		p := c.Networks[n.Name]
		n.Format = p.Format
		n.StatusURL = p.StatusURL
		n.WhazzupURL = p.WhazzupURL
		n.TransceiverURL = p.TransceiverURL
		n.ReloadSeconds = p.ReloadSeconds
	}

	if c.Online.TransceiverURL != "" {
		n.TransceiverURL = c.Online.TransceiverURL
	}
	return n
}

// Validate checks the online section for unknown network and format names.
func (c *Config) Validate() error {
	switch c.Online.Network {
	case "", NetworkNone, NetworkCustom, NetworkCustomStatus:
	default:
		if _, ok := c.Networks[c.Online.Network]; !ok {
			return fmt.Errorf("unknown online network %q", c.Online.Network)
		}
	}
	switch c.Online.Format {
	case "", FormatVATSIM, FormatVATSIMJSON, FormatIVAO, FormatIVAOJSON:
	default:
		return fmt.Errorf("unknown online format %q", c.Online.Format)
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultNetworks returns the built-in network presets.
func DefaultNetworks() map[string]NetworkPreset {
	return map[string]NetworkPreset{
		NetworkVATSIM: {
			Name:           "VATSIM",
			StatusURL:      "https://status.vatsim.net/status.json",
			TransceiverURL: "https://data.vatsim.net/v3/transceivers-data.json",
			Format:         FormatVATSIMJSON,
			ReloadSeconds:  -1,
		},
		NetworkIVAO: {
			Name:          "IVAO",
			WhazzupURL:    "https://api.ivao.aero/v2/tracker/whazzup",
			Format:        FormatIVAOJSON,
			ReloadSeconds: 15,
		},
		NetworkPilotEdge: {
			Name:          "PilotEdge",
			StatusURL:     "http://map.pilotedge.net/status.txt",
			Format:        FormatVATSIM,
			ReloadSeconds: -1,
		},
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Online: OnlineConfig{
			Network:                  NetworkNone,
			Format:                   FormatVATSIM,
			ReloadSeconds:            180,
			TransceiverReloadSeconds: -1,
			RateLimitSeconds:         1.0,
			TimeoutSeconds:           30,
		},
		Networks: DefaultNetworks(),
		Display: DisplayConfig{
			Observer:  -1,
			FIR:       -1,
			Clearance: 10,
			Ground:    10,
			Tower:     20,
			Approach:  60,
			Area:      -1,
			Departure: 60,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			Path:         "data/online.sqlite",
			Host:         "localhost",
			Port:         5432,
			Database:     "navmap_online",
			Username:     "navmap",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			CacheSize:    100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if network := os.Getenv("NAVMAP_ONLINE_NETWORK"); network != "" {
		c.Online.Network = network
	}
	if statusURL := os.Getenv("NAVMAP_ONLINE_STATUS_URL"); statusURL != "" {
		c.Online.StatusURL = statusURL
	}
	if whazzupURL := os.Getenv("NAVMAP_ONLINE_WHAZZUP_URL"); whazzupURL != "" {
		c.Online.WhazzupURL = whazzupURL
	}
	if reload := os.Getenv("NAVMAP_ONLINE_RELOAD_SECONDS"); reload != "" {
		if v, err := strconv.Atoi(reload); err == nil {
			c.Online.ReloadSeconds = v
		}
	}
	if port := os.Getenv("NAVMAP_ONLINE_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPath := os.Getenv("NAVMAP_ONLINE_DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if dbHost := os.Getenv("NAVMAP_ONLINE_DB_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPassword := os.Getenv("NAVMAP_ONLINE_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if level := os.Getenv("NAVMAP_ONLINE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

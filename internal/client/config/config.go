package config

import "time"

// Config holds runtime settings for the vaultdrop CLI.
type Config struct {
	ServerEndpointAddr string
	LocalDBPath        string
	UploadConcurrency  int
	// TransferTimeout bounds a single object upload or download.
	TransferTimeout time.Duration
}

// LoadDefaults populates c with the built-in defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.LocalDBPath = "vaultdrop.db"
	c.UploadConcurrency = 4
	c.TransferTimeout = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

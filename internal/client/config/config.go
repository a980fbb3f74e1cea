// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the UploadVault client.
//
// Fields:
//   - ServerURL: base URL of the UploadVault API server.
//   - UploadEndpoint: base URL of the storage provider's upload endpoint;
//     the resource kind and "/upload" are appended per transfer.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerURL           string
	UploadEndpoint      string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.UploadEndpoint = "http://127.0.0.1:9000/v1"
	c.OnlineCheckInterval = 3 * time.Second
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

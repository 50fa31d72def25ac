package config

import "time"

// Config holds runtime settings for the jobs-manager editing client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - QuiescenceInterval: how long after the last edit the autosave fires.
//   - DraftDBPath: path of the local SQLite draft database.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerEndpointAddr  string
	QuiescenceInterval  time.Duration
	DraftDBPath         string
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.QuiescenceInterval = 1500 * time.Millisecond
	c.DraftDBPath = "drafts.db"
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

// Package config loads workspace configuration from .boardsync/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the workspace settings.
type Config struct {
	// Actor is recorded on transitions appended by this host.
	Actor string `mapstructure:"actor"`

	// SubActor is an optional finer attribution tag (e.g. an agent id).
	SubActor string `mapstructure:"sub_actor"`

	// BoardsDir is the directory of board markdown files, relative to the
	// workspace root unless absolute.
	BoardsDir string `mapstructure:"boards_dir"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`

	// WatchDebounceMS is the watch-mode debounce interval in milliseconds.
	WatchDebounceMS int `mapstructure:"watch_debounce_ms"`
}

// Load reads config.yaml from the workspace marker directory. Missing file
// yields defaults; a malformed file is an error.
func Load(markerDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(markerDir)

	v.SetDefault("actor", defaultActor())
	v.SetDefault("sub_actor", "")
	v.SetDefault("boards_dir", "boards")
	v.SetDefault("dashboard_port", 8080)
	v.SetDefault("watch_debounce_ms", 250)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// defaultActor identifies this host when no actor is configured.
func defaultActor() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "sync"
	}
	return "sync@" + host
}

// DefaultContent is written by bootstrap as a starting config file.
const DefaultContent = `# boardsync workspace configuration.
#
# actor: recorded on every transition this host appends.
# boards_dir: directory of board markdown files, relative to the workspace root.

# actor: sync@myhost
# sub_actor: ""
boards_dir: boards
dashboard_port: 8080
watch_debounce_ms: 250
`

// WritePath returns the config file path inside the marker directory.
func WritePath(markerDir string) string {
	return filepath.Join(markerDir, "config.yaml")
}

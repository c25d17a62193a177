// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/castad/config.yaml",
	"/etc/castad/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CASTA_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8040",
			BindAddr:   "",
		},
		Store: StoreConfig{
			KVPath:       "./data/castad",
			KVConnString: "",
		},
		Media: MediaConfig{
			UploadDir: "./data/media",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Heartbeat: HeartbeatConfig{
			Interval:    8 * time.Second,
			PongTimeout: 5 * time.Second,
		},
		Viewer: ViewerConfig{
			ReadTimeout: 20 * time.Second,
		},
	}
}

// envMappings maps CASTA_-prefixed environment variable names to koanf
// dotted paths. Unmapped variables are ignored, preventing incidental
// environment noise from polluting the configuration.
var envMappings = map[string]string{
	"casta_listen_addr":       "server.listen_addr",
	"casta_bind_addr":         "server.bind_addr",
	"casta_kv_path":           "store.kv_path",
	"casta_kv_conn":           "store.kv_conn",
	"casta_media_dir":         "media.upload_dir",
	"casta_log_level":         "logging.level",
	"casta_log_format":        "logging.format",
	"casta_heartbeat_interval":     "heartbeat.interval",
	"casta_heartbeat_pong_timeout": "heartbeat.pong_timeout",
	"casta_viewer_read_timeout":    "viewer.read_timeout",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// Load resolves configuration from struct defaults, an optional YAML file,
// then environment variables, in that priority order, and validates the
// result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CASTA_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.Store.KVConnString != "" && cfg.Store.KVPath == defaultConfig().Store.KVPath {
		cfg.Store.KVPath = cfg.Store.KVConnString
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

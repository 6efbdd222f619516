package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
	Completion CompletionConfig
	MCP        MCPConfig
	Sync       SyncConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type StorageConfig struct {
	DataDir string
	// Backend is "sqlite" or "memory". The memory backend loses everything
	// on exit.
	Backend string
}

type LogConfig struct {
	Level string
}

type CompletionConfig struct {
	// TrimWhitespace makes whitespace-only text fields count as empty when
	// scoring profile completion.
	TrimWhitespace bool
}

type MCPConfig struct {
	Stdio bool
}

type SyncConfig struct {
	File     string
	Debounce string
}

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Backend: BackendSQLite,
		},
		Log: LogConfig{
			Level: "info",
		},
		Sync: SyncConfig{
			Debounce: "300ms",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.growthcharter.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/growthcharter/config.json.
//
// A .env file in the working directory is loaded first; variables already
// set in the environment win. Environment variables (GROWTHCHARTER_*)
// override backend values on all platforms.
func Load() (Config, error) {
	loadDotEnv(".env")
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("ignoring unreadable dotenv file", "path", path, "error", err)
	}
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend %q: want %q or %q", c.Storage.Backend, BackendSQLite, BackendMemory)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if _, err := time.ParseDuration(c.Sync.Debounce); err != nil {
		return fmt.Errorf("invalid sync.debounce %q: %w", c.Sync.Debounce, err)
	}
	return nil
}

// Addr is the host:port the API server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the URL CLI commands use to reach the server.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// SlogLevel returns the configured level. Load has already validated it.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (s SyncConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "GROWTHCHARTER_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "GROWTHCHARTER_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.allowed_origins", typ: kList, env: "GROWTHCHARTER_SERVER_ALLOWED_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigins = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Server.AllowedOrigins, ",") },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GROWTHCHARTER_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.backend", typ: kString, env: "GROWTHCHARTER_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "log.level", typ: kString, env: "GROWTHCHARTER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "completion.trim_whitespace", typ: kBool, env: "GROWTHCHARTER_COMPLETION_TRIM_WHITESPACE",
		apply:   func(cfg *Config, v any) { cfg.Completion.TrimWhitespace = v.(bool) },
		extract: func(cfg Config) any { return cfg.Completion.TrimWhitespace },
	},
	{
		key: "mcp.stdio", typ: kBool, env: "GROWTHCHARTER_MCP_STDIO",
		apply:   func(cfg *Config, v any) { cfg.MCP.Stdio = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Stdio },
	},
	{
		key: "sync.file", typ: kString, env: "GROWTHCHARTER_SYNC_FILE",
		apply:   func(cfg *Config, v any) { cfg.Sync.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.File },
	},
	{
		key: "sync.debounce", typ: kString, env: "GROWTHCHARTER_SYNC_DEBOUNCE",
		apply:   func(cfg *Config, v any) { cfg.Sync.Debounce = v.(string) },
		extract: func(cfg Config) any { return cfg.Sync.Debounce },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		var (
			v   any
			ok  bool
			err error
		)
		switch s.typ {
		case kString:
			v, ok, err = b.GetString(s.key)
		case kInt:
			v, ok, err = b.GetInt(s.key)
		case kBool:
			v, ok, err = b.GetBool(s.key)
		case kList:
			v, ok, err = b.GetList(s.key)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				slog.Warn("ignoring env override, not an integer", "var", s.env, "value", raw)
				continue
			}
			s.apply(cfg, i)
		case kBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				slog.Warn("ignoring env override, not a bool", "var", s.env, "value", raw)
				continue
			}
			s.apply(cfg, b)
		case kList:
			s.apply(cfg, splitList(raw))
		}
	}
}

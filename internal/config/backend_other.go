//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "growthcharter-data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "growthcharter")
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("growthcharter", "config.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "growthcharter", "config.json")
}

// jsonFile keeps every key as a raw JSON value and decodes it on demand
// into the type the key is declared with. Values written by hand as
// strings ("true", "a,b") are still accepted.
type jsonFile struct {
	path   string
	values map[string]json.RawMessage
}

func newPlatformBackend() Backend {
	f := &jsonFile{path: configFilePath(), values: map[string]json.RawMessage{}}
	f.load()
	return f
}

func (f *jsonFile) load() {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		slog.Warn("config file unreadable, using defaults", "path", f.path, "error", err)
		return
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		slog.Warn("config file malformed, using defaults", "path", f.path, "error", err)
		f.values = map[string]json.RawMessage{}
	}
}

func (f *jsonFile) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, append(data, '\n'), 0o600)
}

// decode unmarshals key into v. When that fails and the stored value is a
// JSON string, the string is handed to fallback instead.
func (f *jsonFile) decode(key string, v any, fallback func(string) error) (bool, error) {
	raw, ok := f.values[key]
	if !ok {
		return false, nil
	}
	err := json.Unmarshal(raw, v)
	if err == nil {
		return true, nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && fallback != nil {
		if ferr := fallback(s); ferr != nil {
			return true, fmt.Errorf("invalid value for %s: %w", key, ferr)
		}
		return true, nil
	}
	return true, fmt.Errorf("invalid value %s for %s: %w", raw, key, err)
}

func (f *jsonFile) GetString(key string) (string, bool, error) {
	var s string
	ok, err := f.decode(key, &s, nil)
	return s, ok, err
}

func (f *jsonFile) GetInt(key string) (int, bool, error) {
	var i int
	ok, err := f.decode(key, &i, func(s string) (err error) {
		i, err = strconv.Atoi(s)
		return err
	})
	return i, ok, err
}

func (f *jsonFile) GetBool(key string) (bool, bool, error) {
	var b bool
	ok, err := f.decode(key, &b, func(s string) (err error) {
		b, err = strconv.ParseBool(s)
		return err
	})
	return b, ok, err
}

func (f *jsonFile) GetList(key string) ([]string, bool, error) {
	var list []string
	ok, err := f.decode(key, &list, func(s string) error {
		list = splitList(s)
		return nil
	})
	return list, ok, err
}

func (f *jsonFile) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.values[key] = raw
	return f.flush()
}

func (f *jsonFile) SetString(key, val string) error        { return f.set(key, val) }
func (f *jsonFile) SetInt(key string, val int) error       { return f.set(key, val) }
func (f *jsonFile) SetBool(key string, val bool) error     { return f.set(key, val) }
func (f *jsonFile) SetList(key string, val []string) error { return f.set(key, val) }

func (f *jsonFile) Unset(key string) error {
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.flush()
}

//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.growthcharter.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "growthcharter-data"
	}
	return filepath.Join(home, "Library", "Application Support", "growthcharter")
}

// userDefaults stores keys in the user's defaults domain, each written
// with its native plist type (-int, -bool, -array).
type userDefaults struct {
	domain string
}

func newPlatformBackend() Backend {
	return &userDefaults{domain: defaultsDomain}
}

// missing reports whether err is the exit status `defaults` uses for an
// absent key.
func missing(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func (d *userDefaults) read(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", d.domain, key).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if missing(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("defaults read %s: %w: %s", key, err, text)
	}
	return text, true, nil
}

func (d *userDefaults) write(key string, args ...string) error {
	argv := append([]string{"write", d.domain, key}, args...)
	if out, err := exec.Command("defaults", argv...).CombinedOutput(); err != nil {
		return fmt.Errorf("defaults write %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *userDefaults) GetString(key string) (string, bool, error) {
	return d.read(key)
}

func (d *userDefaults) GetInt(key string) (int, bool, error) {
	text, ok, err := d.read(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(text)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

// GetBool accepts the 1/0 that `defaults read` prints for -bool entries as
// well as true/false left behind by -string writes.
func (d *userDefaults) GetBool(key string) (bool, bool, error) {
	text, ok, err := d.read(key)
	if !ok || err != nil {
		return false, ok, err
	}
	b, err := strconv.ParseBool(text)
	if err != nil {
		return false, true, fmt.Errorf("invalid bool for %s: %w", key, err)
	}
	return b, true, nil
}

func (d *userDefaults) GetList(key string) ([]string, bool, error) {
	text, ok, err := d.read(key)
	if !ok || err != nil {
		return nil, ok, err
	}
	return parsePlistArray(text), true, nil
}

// parsePlistArray reads the old-style plist array `defaults read` prints:
//
//	(
//	    "http://localhost:3000",
//	    app
//	)
//
// A bare string is treated as a comma-separated list.
func parsePlistArray(text string) []string {
	if !strings.HasPrefix(text, "(") || !strings.HasSuffix(text, ")") {
		return splitList(text)
	}
	var out []string
	for _, line := range strings.Split(text[1:len(text)-1], "\n") {
		item := strings.TrimSuffix(strings.TrimSpace(line), ",")
		if unq, err := strconv.Unquote(item); err == nil {
			item = unq
		}
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (d *userDefaults) SetString(key, val string) error {
	return d.write(key, "-string", val)
}

func (d *userDefaults) SetInt(key string, val int) error {
	return d.write(key, "-int", strconv.Itoa(val))
}

func (d *userDefaults) SetBool(key string, val bool) error {
	return d.write(key, "-bool", strconv.FormatBool(val))
}

func (d *userDefaults) SetList(key string, val []string) error {
	return d.write(key, append([]string{"-array"}, val...)...)
}

func (d *userDefaults) Unset(key string) error {
	err := exec.Command("defaults", "delete", d.domain, key).Run()
	if err != nil && !missing(err) {
		return fmt.Errorf("defaults delete %s: %w", key, err)
	}
	return nil
}

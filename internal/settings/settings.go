// Package settings holds the account settings document that shares the
// persisted store with the profile.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// StorageKey is the persisted store key holding the JSON settings document.
const StorageKey = "account_settings"

type Settings struct {
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Notifications Notifications `json:"notifications"`
	Privacy       Privacy       `json:"privacy"`
	Security      Security      `json:"security"`
}

type Notifications struct {
	Email     bool `json:"email"`
	Push      bool `json:"push"`
	Marketing bool `json:"marketing"`
}

type Privacy struct {
	ProfileVisible bool `json:"profileVisible"`
	ShowEmail      bool `json:"showEmail"`
	ShowPhone      bool `json:"showPhone"`
}

type Security struct {
	TwoFactor          bool   `json:"twoFactor"`
	LastPasswordChange string `json:"lastPasswordChange"`
}

// Patch is a partial update. Each non-nil section replaces the stored
// section as a whole; nil sections are left untouched.
type Patch struct {
	Email         *string        `json:"email,omitempty"`
	Phone         *string        `json:"phone,omitempty"`
	Notifications *Notifications `json:"notifications,omitempty"`
	Privacy       *Privacy       `json:"privacy,omitempty"`
	Security      *Security      `json:"security,omitempty"`
}

// Default returns the settings of a new account.
func Default() Settings {
	return Settings{
		Notifications: Notifications{Email: true, Push: true},
		Privacy:       Privacy{ProfileVisible: true},
		Security:      Security{LastPasswordChange: "Never"},
	}
}

// Decode parses a persisted settings document on top of Default(), so
// missing fields keep their defaults. A malformed document yields Default().
func Decode(data []byte) Settings {
	s := Default()
	if len(data) == 0 {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("malformed settings document, using defaults", "error", err)
		return Default()
	}
	return s
}

// Apply returns s with the patch merged in.
func (s Settings) Apply(p Patch) Settings {
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.Privacy != nil {
		s.Privacy = *p.Privacy
	}
	if p.Security != nil {
		s.Security = *p.Security
	}
	return s
}

// Store defines the storage operations the Manager needs.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Manager reads and writes the settings document. Every Save is written
// through to the store.
type Manager struct {
	store Store

	mu     sync.Mutex
	cached *Settings
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Get returns the current settings.
func (m *Manager) Get() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return *m.cached, nil
	}
	s, err := m.load()
	if err != nil {
		return Settings{}, err
	}
	m.cached = &s
	return s, nil
}

// Save merges p into the stored settings and returns the result.
func (m *Manager) Save(p Patch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.load()
	if err != nil {
		return Settings{}, err
	}
	updated := cur.Apply(p)

	data, err := json.Marshal(updated)
	if err != nil {
		return Settings{}, fmt.Errorf("encoding settings: %w", err)
	}
	if err := m.store.Set(StorageKey, string(data)); err != nil {
		return Settings{}, fmt.Errorf("saving settings: %w", err)
	}
	m.cached = &updated
	return updated, nil
}

// Invalidate drops the cached settings.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

func (m *Manager) load() (Settings, error) {
	raw, err := m.store.Get(StorageKey)
	if err != nil {
		var nf interface{ NotFound() bool }
		if errors.As(err, &nf) && nf.NotFound() {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return Decode([]byte(raw)), nil
}

// Package account implements the data portability operations: exporting
// everything stored for the user and deleting it.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
)

// ExportFileName is the suggested name for a downloaded export.
const ExportFileName = "growth-charter-data.json"

var emptyObject = json.RawMessage(`{}`)

// Document is the export format. Profile and Settings carry the stored
// documents verbatim, or {} when nothing was saved.
type Document struct {
	Profile    json.RawMessage `json:"profile"`
	Settings   json.RawMessage `json:"settings"`
	ExportDate time.Time       `json:"exportDate"`
}

// Store is the subset of the persisted store used by the service.
type Store interface {
	Get(key string) (string, error)
	Clear() error
}

// Invalidator drops cached state after the store is cleared.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	store  Store
	caches []Invalidator
}

// NewService returns a Service over store. Every cache is invalidated
// after Delete.
func NewService(store Store, caches ...Invalidator) *Service {
	return &Service{store: store, caches: caches}
}

// Export reads the profile and settings documents as stored.
func (s *Service) Export(now time.Time) (Document, error) {
	p, err := s.raw(profile.StorageKey)
	if err != nil {
		return Document{}, err
	}
	st, err := s.raw(settings.StorageKey)
	if err != nil {
		return Document{}, err
	}
	return Document{Profile: p, Settings: st, ExportDate: now.UTC()}, nil
}

// WriteExport writes doc as two-space indented JSON.
func WriteExport(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Delete removes every stored key.
func (s *Service) Delete() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("deleting account data: %w", err)
	}
	for _, c := range s.caches {
		c.Invalidate()
	}
	slog.Info("account data deleted")
	return nil
}

func (s *Service) raw(key string) (json.RawMessage, error) {
	v, err := s.store.Get(key)
	if err != nil {
		var nf interface{ NotFound() bool }
		if errors.As(err, &nf) && nf.NotFound() {
			return emptyObject, nil
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if !json.Valid([]byte(v)) {
		slog.Warn("stored document is not valid JSON, exporting {}", "key", key)
		return emptyObject, nil
	}
	return json.RawMessage(v), nil
}

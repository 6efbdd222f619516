package profile

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// StorageKey is the persisted store key holding the JSON profile document.
const StorageKey = "profile_data"

// ErrEmptySkill is returned by AddSkill for a blank skill.
var ErrEmptySkill = errors.New("skill must not be empty")

// Store defines the storage operations the Manager needs.
// Implemented by storage.Store and storage.Memory. A missing key is
// reported with an error whose chain contains a NotFound() bool method
// returning true.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager is the single owner of the current user's profile. Reads are
// served from a short-lived cache; every mutation is written through to
// the store before it returns.
type Manager struct {
	store  Store
	clock  Clock
	ttl    time.Duration
	policy Policy

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock and cache TTL (for testing).
func WithClock(clock Clock, ttl time.Duration) Option {
	return func(m *Manager) {
		m.clock = clock
		m.ttl = ttl
	}
}

// WithPolicy sets the completion policy used by Completion.
func WithPolicy(p Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetProfile returns the current profile. A missing or malformed document
// yields the default profile.
func (m *Manager) GetProfile() (Profile, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := deepCopyProfile(m.cached)
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return deepCopyProfile(m.cached), nil
	}

	p, err := m.load()
	if err != nil {
		return Profile{}, err
	}
	m.cached = &p
	m.cachedAt = m.clock.Now()
	return deepCopyProfile(&p), nil
}

// Replace overwrites the whole profile.
func (m *Manager) Replace(p Profile) error {
	return m.mutate(func(cur *Profile) {
		*cur = deepCopyProfile(&p)
	})
}

// UpdatePersonal overwrites the contact section.
func (m *Manager) UpdatePersonal(in Personal) error {
	return m.mutate(func(p *Profile) {
		p.FullName = in.FullName
		p.Headline = in.Headline
		p.Location = in.Location
		p.Email = in.Email
		p.LinkedIn = in.LinkedIn
	})
}

// PatchPersonal merges the non-nil fields of in into the contact section.
// The merge runs under the write lock against the stored profile.
func (m *Manager) PatchPersonal(in PersonalPatch) error {
	return m.mutate(func(p *Profile) {
		set(&p.FullName, in.FullName)
		set(&p.Headline, in.Headline)
		set(&p.Location, in.Location)
		set(&p.Email, in.Email)
		set(&p.LinkedIn, in.LinkedIn)
	})
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// SetMedia sets the avatar and banner references.
func (m *Manager) SetMedia(avatarURL, bannerURL string) error {
	return m.mutate(func(p *Profile) {
		p.AvatarURL = avatarURL
		p.BannerURL = bannerURL
	})
}

// SetEducation overwrites the education section. Entries with neither a
// degree nor an institution are dropped.
func (m *Manager) SetEducation(entries []Education) error {
	kept := make([]Education, 0, len(entries))
	for _, e := range entries {
		if e.Degree != "" || e.Institution != "" {
			kept = append(kept, e)
		}
	}
	return m.mutate(func(p *Profile) { p.Education = kept })
}

// SetExperience overwrites the experience section. Entries with neither a
// company nor a role are dropped.
func (m *Manager) SetExperience(entries []Experience) error {
	kept := make([]Experience, 0, len(entries))
	for _, e := range entries {
		if e.Company != "" || e.Role != "" {
			kept = append(kept, e)
		}
	}
	return m.mutate(func(p *Profile) { p.Experience = kept })
}

// SetSkills overwrites the skills set. Values are trimmed; blanks and
// duplicates are dropped.
func (m *Manager) SetSkills(skills []string) error {
	cleaned := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	cleaned = dedupe(cleaned)
	return m.mutate(func(p *Profile) { p.Skills = cleaned })
}

// AddSkill appends a skill unless it is blank or already present.
func (m *Manager) AddSkill(skill string) error {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return ErrEmptySkill
	}
	return m.mutate(func(p *Profile) {
		for _, s := range p.Skills {
			if s == skill {
				return
			}
		}
		p.Skills = append(p.Skills, skill)
	})
}

// RemoveSkill removes a skill if present.
func (m *Manager) RemoveSkill(skill string) error {
	return m.mutate(func(p *Profile) {
		kept := p.Skills[:0]
		for _, s := range p.Skills {
			if s != skill {
				kept = append(kept, s)
			}
		}
		p.Skills = kept
	})
}

// Completion scores the current profile under the manager's policy.
func (m *Manager) Completion() (Report, error) {
	p, err := m.GetProfile()
	if err != nil {
		return Report{}, fmt.Errorf("getting profile for completion: %w", err)
	}
	return m.policy.Report(p), nil
}

// Invalidate drops the cached profile so the next read goes to the store.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

// mutate loads the current profile, applies fn and persists the result.
// The store is always re-read so writes never build on a stale cache.
func (m *Manager) mutate(fn func(*Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.load()
	if err != nil {
		return err
	}
	fn(&p)

	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := m.store.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}

	p = normalize(p)
	m.cached = &p
	m.cachedAt = m.clock.Now()
	return nil
}

// load reads the profile document from the store. Caller holds m.mu.
func (m *Manager) load() (Profile, error) {
	raw, err := m.store.Get(StorageKey)
	if err != nil {
		if isNotFound(err) {
			return Default(), nil
		}
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return Decode([]byte(raw)), nil
}

func isNotFound(err error) bool {
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}

func deepCopyProfile(p *Profile) Profile {
	if p == nil {
		return Default()
	}
	cp := *p

	if p.Education != nil {
		cp.Education = make([]Education, len(p.Education))
		copy(cp.Education, p.Education)
	}
	if p.Experience != nil {
		cp.Experience = make([]Experience, len(p.Experience))
		copy(cp.Experience, p.Experience)
	}
	if p.Skills != nil {
		cp.Skills = make([]string, len(p.Skills))
		copy(cp.Skills, p.Skills)
	}
	return cp
}

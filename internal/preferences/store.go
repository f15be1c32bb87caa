package preferences

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/example/grocery-sync/internal/infrastructure/store"
	"github.com/example/grocery-sync/internal/observer"
)

// StorageKey is where preferences live in local storage.
const StorageKey = "userPreferences"

// Store holds one Preferences value. Every mutation goes through Update,
// which validates and writes to storage before the new value is visible.
type Store struct {
	mu     sync.Mutex
	kv     store.KV
	logger *zap.Logger
	prefs  Preferences

	observers observer.Registry
}

// Open loads preferences from kv. Missing or unreadable data falls back to
// defaults; fields absent from stored data keep their default.
func Open(kv store.KV, logger *zap.Logger) *Store {
	s := &Store{
		kv:     kv,
		logger: logger.Named("preferences"),
		prefs:  Defaults(),
	}

	raw, ok, err := kv.Get(StorageKey)
	switch {
	case err != nil:
		s.logger.Error("loading preferences", zap.Error(err))
	case !ok:
	default:
		loaded := Defaults()
		if err := json.Unmarshal(raw, &loaded); err != nil {
			s.logger.Error("stored preferences are unreadable, using defaults", zap.Error(err))
			break
		}
		if err := loaded.Validate(); err != nil {
			s.logger.Error("stored preferences are invalid, using defaults", zap.Error(err))
			break
		}
		s.prefs = loaded
	}
	return s
}

func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// Update applies fn to a copy, validates it and persists it. On any error
// the current value is left untouched.
func (s *Store) Update(fn func(*Preferences)) error {
	return s.apply(func(p *Preferences) error {
		fn(p)
		return nil
	})
}

func (s *Store) apply(fn func(*Preferences) error) error {
	s.mu.Lock()
	next := s.prefs
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := s.kv.Set(StorageKey, raw); err != nil {
		s.mu.Unlock()
		s.logger.Error("saving preferences", zap.Error(err))
		return fmt.Errorf("saving preferences: %w", err)
	}
	s.prefs = next
	s.mu.Unlock()

	s.observers.Notify()
	return nil
}

// Set changes one leaf addressed by a dotted JSON path such as
// "notifications.low_stock".
func (s *Store) Set(key string, value any) error {
	parts := strings.Split(key, ".")
	patch := map[string]any{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		patch = map[string]any{parts[i]: patch}
	}
	return s.Merge(patch)
}

// Merge applies a partial object. Every key must name an existing
// preference; a null value restores that field's default.
func (s *Store) Merge(patch map[string]any) error {
	rawPatch, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return s.apply(func(p *Preferences) error {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding preferences: %w", err)
		}
		var shape map[string]any
		if err := json.Unmarshal(doc, &shape); err != nil {
			return fmt.Errorf("encoding preferences: %w", err)
		}
		if err := checkKeys(shape, patch, ""); err != nil {
			return err
		}

		merged, err := jsonpatch.MergePatch(doc, rawPatch)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		next := Defaults()
		dec := json.NewDecoder(bytes.NewReader(merged))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&next); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		*p = next
		return nil
	})
}

func checkKeys(shape, patch map[string]any, prefix string) error {
	for k, v := range patch {
		existing, ok := shape[k]
		if !ok {
			return fmt.Errorf("%w: %s%s", ErrUnknownPreference, prefix, k)
		}
		group, isGroup := existing.(map[string]any)
		sub, isSub := v.(map[string]any)
		switch {
		case isGroup && isSub:
			if err := checkKeys(group, sub, prefix+k+"."); err != nil {
				return err
			}
		case isGroup && v != nil:
			return fmt.Errorf("%w: %s%s is a group", ErrInvalidValue, prefix, k)
		}
	}
	return nil
}

func (s *Store) Reset() error {
	return s.Update(func(p *Preferences) { *p = Defaults() })
}

// ToggleTheme flips between light and dark; auto becomes light.
func (s *Store) ToggleTheme() error {
	return s.Update(func(p *Preferences) {
		if p.Theme == ThemeLight {
			p.Theme = ThemeDark
		} else {
			p.Theme = ThemeLight
		}
	})
}

func (s *Store) ToggleSidebar() error {
	return s.Update(func(p *Preferences) {
		p.Layout.SidebarCollapsed = !p.Layout.SidebarCollapsed
	})
}

func (s *Store) Subscribe(fn func()) *observer.Subscription {
	return s.observers.Subscribe(fn)
}

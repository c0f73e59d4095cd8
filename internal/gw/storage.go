package gw

import (
	"fmt"
	"sync"
	"time"

	"giftwise/internal/model"
)

// Storage is the facade over the record stores. It owns the cross-store
// invariants: the gift-count projection on profiles, the last-backup marker
// and the first-visit flag.
//
// Every exported method holds a single mutex for its whole duration, so no two
// mutations interleave. Events are delivered while that mutex is held;
// subscribers must not call back into Storage from the notifying goroutine.
type Storage struct {
	mu            sync.Mutex
	store         BackingStore
	profiles      ProfileStore
	history       HistoryStore
	settings      SettingsStore
	bus           *EventBus
	logger        Logger
	clock         Clock
	idgen         IDGenerator
	defaultAPIKey string
}

// NewStorage creates a Storage over the given stores. bus must be the same
// Notifier the record stores publish to.
func NewStorage(store BackingStore, profiles ProfileStore, history HistoryStore, settings SettingsStore, bus *EventBus, logger Logger, clock Clock, idgen IDGenerator) *Storage {
	return &Storage{
		store:    store,
		profiles: profiles,
		history:  history,
		settings: settings,
		bus:      bus,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// SetDefaultAPIKey sets the API key used when settings do not carry one.
func (s *Storage) SetDefaultAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultAPIKey = key
}

// Subscribe registers fn for change notifications.
func (s *Storage) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

// Init makes sure a user id, both collections, default settings and the
// version stamp exist. It is idempotent; later calls only re-check.
func (s *Storage) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.init()
}

func (s *Storage) init() error {
	if _, ok, err := s.store.Get(KeyUserID); err != nil {
		return fmt.Errorf("reading user id: %w", err)
	} else if !ok {
		userID := "anon_" + s.idgen.New()
		if err := s.store.Set(KeyUserID, userID); err != nil {
			return fmt.Errorf("storing user id: %w", err)
		}
		s.logger.Info("generated user id", "user_id", userID)
	}

	if _, ok, err := s.profiles.Load(); err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	} else if !ok {
		if err := s.profiles.Save([]model.Profile{}); err != nil {
			return fmt.Errorf("initializing profiles: %w", err)
		}
	}

	if _, ok, err := s.history.Load(); err != nil {
		return fmt.Errorf("loading gift history: %w", err)
	} else if !ok {
		if err := s.history.Save([]model.GiftEntry{}); err != nil {
			return fmt.Errorf("initializing gift history: %w", err)
		}
	}

	settings, ok, err := s.settings.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if !ok || settings.IsEmpty() {
		if err := s.settings.Save(s.defaultSettings()); err != nil {
			return fmt.Errorf("initializing settings: %w", err)
		}
	}

	if err := s.store.Set(KeyVersion, model.AppVersion); err != nil {
		return fmt.Errorf("storing version: %w", err)
	}

	s.bus.Notify(EventInitialized)
	return nil
}

func (s *Storage) defaultSettings() model.Settings {
	return model.Settings{
		Version:             model.AppVersion,
		CreatedAt:           stamp(s.clock),
		Theme:               model.ThemeLight,
		EnableNotifications: true,
		AutoBackup:          false,
		DataRetention:       365,
		GeminiAPIKey:        s.defaultAPIKey,
	}
}

// UserID returns the anonymous user id, or "" before Init has run.
func (s *Storage) UserID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID()
}

func (s *Storage) userID() (string, error) {
	id, _, err := s.store.Get(KeyUserID)
	if err != nil {
		return "", fmt.Errorf("reading user id: %w", err)
	}
	return id, nil
}

// IsFirstVisit reports whether MarkVisited has never been called.
func (s *Storage) IsFirstVisit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.store.Get(KeyFirstVisit)
	if err != nil {
		return false, fmt.Errorf("reading first visit flag: %w", err)
	}
	return !ok, nil
}

// MarkVisited sets the first-visit flag. It survives ClearAllData.
func (s *Storage) MarkVisited() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(KeyFirstVisit, "true"); err != nil {
		return fmt.Errorf("storing first visit flag: %w", err)
	}
	return nil
}

// LastBackup returns the last-backup marker, or nil when it was never set.
// The marker records the last change that needs backing up.
func (s *Storage) LastBackup() (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBackup()
}

func (s *Storage) lastBackup() (*time.Time, error) {
	raw, ok, err := s.store.Get(KeyLastBackup)
	if err != nil {
		return nil, fmt.Errorf("reading last backup: %w", err)
	}
	if !ok {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("ignoring unparseable last backup marker", "value", raw, "error", err)
		return nil, nil
	}
	return &t, nil
}

// touchLastBackup records the time of the latest change. It runs after the
// change itself is committed, so a failure is logged rather than returned.
func (s *Storage) touchLastBackup() {
	if err := s.store.Set(KeyLastBackup, stamp(s.clock).Format(isoMillis)); err != nil {
		s.logger.Warn("storing last backup marker failed", "error", err)
	}
}

// ClearAllData removes every key in the namespace except the first-visit flag,
// re-runs Init and emits data-cleared.
func (s *Storage) ClearAllData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.store.Keys()
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}
	for _, key := range keys {
		if key == KeyFirstVisit {
			continue
		}
		if err := s.store.Remove(key); err != nil {
			return fmt.Errorf("removing %s: %w", key, err)
		}
	}
	s.logger.Warn("cleared all data", "keys", len(keys))

	if err := s.init(); err != nil {
		return fmt.Errorf("reinitializing: %w", err)
	}

	s.bus.Notify(EventDataCleared)
	return nil
}

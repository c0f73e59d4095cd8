package records

import (
	"fmt"
	"time"

	"giftwise/internal/codec"
	"giftwise/internal/gw"
	"giftwise/internal/model"
)

// SettingsStore persists the settings object directly (no envelope) under
// gw.KeySettings, stamping UpdatedAt on every save.
type SettingsStore struct {
	store    gw.BackingStore
	notifier gw.Notifier
	logger   gw.Logger
	clock    gw.Clock
}

var _ gw.SettingsStore = (*SettingsStore)(nil)

func NewSettingsStore(store gw.BackingStore, notifier gw.Notifier, logger gw.Logger, clock gw.Clock) *SettingsStore {
	return &SettingsStore{store: store, notifier: notifier, logger: logger, clock: clock}
}

func (s *SettingsStore) Load() (model.Settings, bool, error) {
	raw, ok, err := s.store.Get(gw.KeySettings)
	if err != nil {
		return model.Settings{}, false, fmt.Errorf("reading %s: %w", gw.KeySettings, err)
	}
	if !ok {
		return model.Settings{}, false, nil
	}

	var settings model.Settings
	if !codec.Deobfuscate(raw, &settings) {
		s.logger.Warn("discarding undecodable record", "key", gw.KeySettings)
		return model.Settings{}, false, nil
	}
	return settings, true, nil
}

func (s *SettingsStore) Save(settings model.Settings) error {
	settings.UpdatedAt = s.clock.Now().UTC().Truncate(time.Millisecond)

	encoded, ok := codec.Obfuscate(settings)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEncode, gw.KeySettings)
	}
	if err := s.store.Set(gw.KeySettings, encoded); err != nil {
		s.logger.Error("writing record failed", "key", gw.KeySettings, "error", err)
		return fmt.Errorf("writing %s: %w", gw.KeySettings, err)
	}
	s.notifier.Notify(gw.EventSettingsUpdated)
	return nil
}

package gw

import (
	"fmt"

	"giftwise/internal/model"
)

// Settings returns the stored settings, with the configured default API key
// filled in when none is stored. Missing settings are not an error.
func (s *Storage) Settings() (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSettings()
}

func (s *Storage) currentSettings() (model.Settings, error) {
	settings, _, err := s.settings.Load()
	if err != nil {
		return model.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	if settings.GeminiAPIKey == "" {
		settings.GeminiAPIKey = s.defaultAPIKey
	}
	return settings, nil
}

// UpdateSettings merges patch onto the current settings and saves them.
func (s *Storage) UpdateSettings(patch model.SettingsPatch) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.currentSettings()
	if err != nil {
		return model.Settings{}, err
	}
	patch.Apply(&settings)
	settings.UpdatedAt = stamp(s.clock)

	if err := s.settings.Save(settings); err != nil {
		return model.Settings{}, fmt.Errorf("saving settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the settings record.
func (s *Storage) SaveSettings(settings model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.Save(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

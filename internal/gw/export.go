package gw

import (
	"bytes"
	"encoding/json"
	"fmt"

	"giftwise/internal/model"
)

// ImportResult describes a successful import.
type ImportResult struct {
	Profiles int    `json:"profiles"`
	Gifts    int    `json:"gifts"`
	Message  string `json:"message"`
}

// ExportAllData snapshots every collection plus metadata. It does not modify
// anything.
func (s *Storage) ExportAllData() (model.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportAllData()
}

func (s *Storage) exportAllData() (model.Export, error) {
	userID, err := s.userID()
	if err != nil {
		return model.Export{}, err
	}
	profiles, err := s.loadProfiles()
	if err != nil {
		return model.Export{}, err
	}
	history, err := s.loadHistory()
	if err != nil {
		return model.Export{}, err
	}
	settings, err := s.currentSettings()
	if err != nil {
		return model.Export{}, err
	}

	return model.Export{
		Meta: model.ExportMeta{
			Version:       model.AppVersion,
			ExportedAt:    stamp(s.clock),
			UserID:        userID,
			TotalProfiles: len(profiles),
			TotalGifts:    len(history),
		},
		Profiles:    profiles,
		GiftHistory: history,
		Settings:    settings,
	}, nil
}

// ExportJSON renders ExportAllData as indented JSON and returns it together
// with the suggested file name.
func (s *Storage) ExportJSON() (data []byte, fileName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	export, err := s.exportAllData()
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return nil, "", fmt.Errorf("encoding export: %w", err)
	}
	return buf.Bytes(), model.ExportFileName(export.Meta.ExportedAt), nil
}

// ImportData replaces the profiles and gift history (and the settings, when
// the payload carries a settings object) with the contents of an export.
//
// The payload is validated before anything is written; a payload without
// array-typed profiles and giftHistory fails with ErrInvalidBackup. If a
// collection write fails, collections already written are restored. Once every
// collection is written the import has succeeded; the last-backup marker is
// updated on a best-effort basis.
func (s *Storage) ImportData(data []byte) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw model.RawExport
	if err := json.Unmarshal(data, &raw); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if !isJSONArray(raw.Profiles) {
		return ImportResult{}, fmt.Errorf("%w: missing profiles array", ErrInvalidBackup)
	}
	if !isJSONArray(raw.GiftHistory) {
		return ImportResult{}, fmt.Errorf("%w: missing giftHistory array", ErrInvalidBackup)
	}

	var profiles []model.Profile
	if err := json.Unmarshal(raw.Profiles, &profiles); err != nil {
		return ImportResult{}, fmt.Errorf("%w: profiles: %v", ErrInvalidBackup, err)
	}
	var history []model.GiftEntry
	if err := json.Unmarshal(raw.GiftHistory, &history); err != nil {
		return ImportResult{}, fmt.Errorf("%w: giftHistory: %v", ErrInvalidBackup, err)
	}

	var settings *model.Settings
	if isJSONObject(raw.Settings) {
		var st model.Settings
		if err := json.Unmarshal(raw.Settings, &st); err != nil {
			s.logger.Warn("ignoring malformed settings in import", "error", err)
		} else {
			settings = &st
		}
	}

	prevProfiles, err := s.loadProfiles()
	if err != nil {
		return ImportResult{}, err
	}
	prevHistory, err := s.loadHistory()
	if err != nil {
		return ImportResult{}, err
	}

	if err := s.profiles.Save(profiles); err != nil {
		return ImportResult{}, fmt.Errorf("saving profiles: %w", err)
	}
	if err := s.history.Save(history); err != nil {
		s.restoreProfiles(prevProfiles)
		return ImportResult{}, fmt.Errorf("saving gift history: %w", err)
	}
	if settings != nil {
		if err := s.settings.Save(*settings); err != nil {
			s.restoreProfiles(prevProfiles)
			if rbErr := s.history.Save(prevHistory); rbErr != nil {
				s.logger.Error("restoring gift history failed", "error", rbErr)
			}
			return ImportResult{}, fmt.Errorf("saving settings: %w", err)
		}
	}
	s.touchLastBackup()

	res := ImportResult{
		Profiles: len(profiles),
		Gifts:    len(history),
		Message:  fmt.Sprintf("Successfully imported %d profiles and %d gifts", len(profiles), len(history)),
	}
	s.logger.Info("data imported", "profiles", res.Profiles, "gifts", res.Gifts)
	return res, nil
}

func (s *Storage) restoreProfiles(profiles []model.Profile) {
	if err := s.profiles.Save(profiles); err != nil {
		s.logger.Error("restoring profiles failed", "error", err)
	}
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

package gw

import (
	"fmt"
	"slices"

	"giftwise/internal/model"
)

// Profiles returns every stored profile in insertion order.
func (s *Storage) Profiles() ([]model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadProfiles()
}

func (s *Storage) loadProfiles() ([]model.Profile, error) {
	profiles, _, err := s.profiles.Load()
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	return profiles, nil
}

// Profile returns the profile with the given id, or nil if none exists.
func (s *Storage) Profile(id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles()
	if err != nil {
		return nil, err
	}
	i := indexOfProfile(profiles, id)
	if i < 0 {
		return nil, nil
	}
	return &profiles[i], nil
}

// AddProfile stores a new profile with a fresh id, fresh timestamps and zeroed
// gift counters, and returns the stored record. An error means nothing was
// stored.
func (s *Storage) AddProfile(fields model.ProfileFields) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles()
	if err != nil {
		return model.Profile{}, err
	}

	now := stamp(s.clock)
	p := model.NewProfile(fields)
	p.ID = "profile_" + s.idgen.New()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.GiftCount = 0
	p.LastGiftDate = nil

	if err := s.profiles.Save(append(profiles, p)); err != nil {
		return model.Profile{}, fmt.Errorf("saving profiles: %w", err)
	}
	s.touchLastBackup()

	s.logger.Info("profile added", "profile_id", p.ID)
	return p, nil
}

// UpdateProfile merges patch onto the profile with the given id and refreshes
// its UpdatedAt. It returns nil without writing anything if the id is unknown.
func (s *Storage) UpdateProfile(id string, patch model.ProfilePatch) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles()
	if err != nil {
		return nil, err
	}
	i := indexOfProfile(profiles, id)
	if i < 0 {
		return nil, nil
	}

	patch.Apply(&profiles[i])
	profiles[i].UpdatedAt = stamp(s.clock)

	if err := s.profiles.Save(profiles); err != nil {
		return nil, fmt.Errorf("saving profiles: %w", err)
	}
	updated := profiles[i]
	return &updated, nil
}

// DeleteProfile removes the profile with the given id. Gift-history entries
// that reference it are left in place.
func (s *Storage) DeleteProfile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles()
	if err != nil {
		return err
	}
	profiles = slices.DeleteFunc(profiles, func(p model.Profile) bool { return p.ID == id })

	if err := s.profiles.Save(profiles); err != nil {
		return fmt.Errorf("saving profiles: %w", err)
	}
	return nil
}

func indexOfProfile(profiles []model.Profile, id string) int {
	return slices.IndexFunc(profiles, func(p model.Profile) bool { return p.ID == id })
}

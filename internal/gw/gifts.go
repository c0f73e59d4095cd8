package gw

import (
	"fmt"
	"time"

	"giftwise/internal/model"
)

// GiftHistory returns every gift-history entry in insertion order.
func (s *Storage) GiftHistory() ([]model.GiftEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistory()
}

func (s *Storage) loadHistory() ([]model.GiftEntry, error) {
	history, _, err := s.history.Load()
	if err != nil {
		return nil, fmt.Errorf("loading gift history: %w", err)
	}
	return history, nil
}

// GiftsForProfile returns the entries attributed to profileID. The profile
// does not need to exist.
func (s *Storage) GiftsForProfile(profileID string) ([]model.GiftEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return nil, err
	}
	gifts := []model.GiftEntry{}
	for _, g := range history {
		if g.ProfileID == profileID {
			gifts = append(gifts, g)
		}
	}
	return gifts, nil
}

// ResolveGift looks up the profile a gift entry refers to. It returns nil when
// the entry has no profile or the profile has since been deleted.
func (s *Storage) ResolveGift(g model.GiftEntry) (*model.Profile, error) {
	if g.ProfileID == "" {
		return nil, nil
	}
	return s.Profile(g.ProfileID)
}

// AddGiftToHistory appends a gift entry stamped with the current time and, if
// the referenced profile exists, increments its gift count and sets its last
// gift date to the same time. A missing profile is not an error.
//
// If the profile cannot be saved, the history write is rolled back so the
// gift count keeps matching the history. An error means nothing was stored.
func (s *Storage) AddGiftToHistory(fields model.GiftFields) (model.GiftEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return model.GiftEntry{}, err
	}

	now := stamp(s.clock)
	gift := model.GiftEntry{
		ID:        "gift_" + s.idgen.New(),
		ProfileID: fields.ProfileID,
		GiftName:  fields.GiftName,
		Occasion:  fields.Occasion,
		Price:     fields.Price,
		Status:    model.GiftStatusGiven,
		Notes:     fields.Notes,
		GivenAt:   now,
	}

	previous := history
	if err := s.history.Save(append(history[:len(history):len(history)], gift)); err != nil {
		return model.GiftEntry{}, fmt.Errorf("saving gift history: %w", err)
	}

	if gift.ProfileID != "" {
		if err := s.countGift(gift.ProfileID, now); err != nil {
			if rbErr := s.history.Save(previous); rbErr != nil {
				s.logger.Error("rolling back gift history failed", "gift_id", gift.ID, "error", rbErr)
			}
			return model.GiftEntry{}, err
		}
	}

	s.touchLastBackup()

	s.logger.Info("gift recorded", "gift_id", gift.ID, "profile_id", gift.ProfileID)
	return gift, nil
}

// countGift applies one gift given at t to the profile's projection.
func (s *Storage) countGift(profileID string, t time.Time) error {
	profiles, err := s.loadProfiles()
	if err != nil {
		return err
	}
	i := indexOfProfile(profiles, profileID)
	if i < 0 {
		s.logger.Debug("gift references unknown profile", "profile_id", profileID)
		return nil
	}

	profiles[i].GiftCount++
	profiles[i].LastGiftDate = &t
	profiles[i].UpdatedAt = t

	if err := s.profiles.Save(profiles); err != nil {
		return fmt.Errorf("saving profiles: %w", err)
	}
	return nil
}

// MarkGiftGiven records a given gift for a profile.
func (s *Storage) MarkGiftGiven(profileID, giftName, occasion, notes string) (model.GiftEntry, error) {
	return s.AddGiftToHistory(model.GiftFields{
		ProfileID: profileID,
		GiftName:  giftName,
		Occasion:  occasion,
		Notes:     notes,
	})
}

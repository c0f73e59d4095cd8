package records

import (
	"giftwise/internal/gw"
	"giftwise/internal/model"
)

// ProfileStore persists profiles under gw.KeyProfiles.
type ProfileStore struct {
	c collection[model.Profile]
}

var _ gw.ProfileStore = (*ProfileStore)(nil)

func NewProfileStore(store gw.BackingStore, notifier gw.Notifier, logger gw.Logger, clock gw.Clock) *ProfileStore {
	return &ProfileStore{c: collection[model.Profile]{
		store:    store,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		key:      gw.KeyProfiles,
		field:    "profiles",
		event:    gw.EventProfilesUpdated,
	}}
}

func (s *ProfileStore) Load() ([]model.Profile, bool, error) { return s.c.load() }

func (s *ProfileStore) Save(profiles []model.Profile) error { return s.c.save(profiles) }

// HistoryStore persists gift-history entries under gw.KeyGiftHistory.
type HistoryStore struct {
	c collection[model.GiftEntry]
}

var _ gw.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(store gw.BackingStore, notifier gw.Notifier, logger gw.Logger, clock gw.Clock) *HistoryStore {
	return &HistoryStore{c: collection[model.GiftEntry]{
		store:    store,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		key:      gw.KeyGiftHistory,
		field:    "history",
		event:    gw.EventHistoryUpdated,
	}}
}

func (s *HistoryStore) Load() ([]model.GiftEntry, bool, error) { return s.c.load() }

func (s *HistoryStore) Save(history []model.GiftEntry) error { return s.c.save(history) }

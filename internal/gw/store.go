package gw

import "giftwise/internal/model"

// Keys within the application namespace. The backing store adds the prefix.
const (
	KeyUserID      = "user_id"
	KeyProfiles    = "profiles"
	KeyGiftHistory = "gift_history"
	KeySettings    = "settings"
	KeyLastBackup  = "last_backup"
	KeyVersion     = "version"
	KeyFirstVisit  = "first_visit"
)

// MaxStorageBytes is the storage budget usage is reported against (10 MiB).
// It matches config.DefaultQuota; both count value bytes only.
const MaxStorageBytes int64 = 10 * 1024 * 1024

// BackingStore is a namespaced string key-value store. Keys passed in and
// returned are relative to the namespace.
type BackingStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set replaces the value for key in a single atomic write. When the write
	// would exceed the store's quota it fails and the previous value is kept.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error

	// Len returns the number of keys in the namespace.
	Len() (int, error)

	// Key returns the i-th key in the namespace in a stable order, or false
	// when i is out of range.
	Key(i int) (string, bool, error)

	// Keys returns every key in the namespace.
	Keys() ([]string, error)
}

// ProfileStore persists the profiles collection.
type ProfileStore interface {
	// Load returns the stored profiles and whether a readable collection was
	// found. Missing or undecodable data yields an empty collection and false;
	// only backing-store failures are returned as errors.
	Load() ([]model.Profile, bool, error)
	Save(profiles []model.Profile) error
}

// HistoryStore persists the gift-history collection.
type HistoryStore interface {
	Load() ([]model.GiftEntry, bool, error)
	Save(history []model.GiftEntry) error
}

// SettingsStore persists the single settings record.
type SettingsStore interface {
	// Load returns the stored settings and false when none are stored or they
	// cannot be decoded.
	Load() (model.Settings, bool, error)
	Save(settings model.Settings) error
}

package model

import (
	"encoding/json"
	"time"
)

// AppVersion is the schema/app version stamped into storage and exports.
const AppVersion = "1.0.0"

// ExportMeta describes an export file.
type ExportMeta struct {
	Version       string    `json:"version"`
	ExportedAt    time.Time `json:"exportedAt"`
	UserID        string    `json:"userId"`
	TotalProfiles int       `json:"totalProfiles"`
	TotalGifts    int       `json:"totalGifts"`
}

// Export is the full-dataset backup format. It is plain, human-readable JSON,
// never run through the storage codec.
type Export struct {
	Meta        ExportMeta  `json:"meta"`
	Profiles    []Profile   `json:"profiles"`
	GiftHistory []GiftEntry `json:"giftHistory"`
	Settings    Settings    `json:"settings"`
}

// RawExport is an export file decoded only far enough to validate its shape.
type RawExport struct {
	Meta        json.RawMessage `json:"meta"`
	Profiles    json.RawMessage `json:"profiles"`
	GiftHistory json.RawMessage `json:"giftHistory"`
	Settings    json.RawMessage `json:"settings"`
}

// ExportFileName returns the suggested file name for an export taken at t.
func ExportFileName(t time.Time) string {
	return "giftwise_backup_" + t.UTC().Format("2006-01-02") + ".json"
}

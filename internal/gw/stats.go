package gw

import (
	"slices"
	"time"

	"giftwise/internal/model"
)

const (
	recentGiftsLimit = 10
	topProfilesLimit = 5

	// estimatedGiftValue is the flat per-gift amount behind EstimatedSpent.
	estimatedGiftValue = 100
)

// Stats is an aggregate view over the stored data.
type Stats struct {
	TotalProfiles   int               `json:"totalProfiles"`
	TotalGiftsGiven int               `json:"totalGiftsGiven"`
	StorageUsage    Usage             `json:"storageUsage"`
	LastBackup      *time.Time        `json:"lastBackup"`
	TotalSpent      float64           `json:"totalSpent"`     // sum of recorded prices
	EstimatedSpent  float64           `json:"estimatedSpent"` // flat amount per gift
	RecentGifts     []model.GiftEntry `json:"recentGifts"`    // most recent first
	TopProfiles     []model.Profile   `json:"topProfiles"`    // by gift count, descending
	GiftsByMonth    map[string]int    `json:"giftsByMonth"`   // "YYYY-MM" or "unknown"
	GiftsByOccasion map[string]int    `json:"giftsByOccasion"`
}

// Stats computes the aggregate view. It does not modify anything.
func (s *Storage) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles()
	if err != nil {
		return Stats{}, err
	}
	history, err := s.loadHistory()
	if err != nil {
		return Stats{}, err
	}
	usage, err := s.storageUsage()
	if err != nil {
		return Stats{}, err
	}
	lastBackup, err := s.lastBackup()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalProfiles:   len(profiles),
		TotalGiftsGiven: len(history),
		StorageUsage:    usage,
		LastBackup:      lastBackup,
		GiftsByMonth:    map[string]int{},
		GiftsByOccasion: map[string]int{},
	}

	for _, g := range history {
		month := "unknown"
		if !g.GivenAt.IsZero() {
			month = g.GivenAt.UTC().Format("2006-01")
		}
		st.GiftsByMonth[month]++

		occasion := g.Occasion
		if occasion == "" {
			occasion = "unknown"
		}
		st.GiftsByOccasion[occasion]++

		st.TotalSpent += g.Price
		st.EstimatedSpent += estimatedGiftValue
	}

	recent := history[max(0, len(history)-recentGiftsLimit):]
	st.RecentGifts = make([]model.GiftEntry, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		st.RecentGifts = append(st.RecentGifts, recent[i])
	}

	top := slices.Clone(profiles)
	slices.SortStableFunc(top, func(a, b model.Profile) int { return b.GiftCount - a.GiftCount })
	st.TopProfiles = top[:min(len(top), topProfilesLimit)]
	if st.TopProfiles == nil {
		st.TopProfiles = []model.Profile{}
	}

	return st, nil
}

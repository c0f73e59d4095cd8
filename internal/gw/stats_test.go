package gw_test

import (
	"fmt"
	"testing"
	"time"

	"giftwise/internal/model"
)

func TestStats_Empty(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	st, err := h.Storage.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalProfiles != 0 || st.TotalGiftsGiven != 0 || st.TotalSpent != 0 || st.EstimatedSpent != 0 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.RecentGifts == nil || st.TopProfiles == nil || st.GiftsByMonth == nil || st.GiftsByOccasion == nil {
		t.Error("Stats() returned nil collections")
	}
	if st.LastBackup != nil {
		t.Errorf("LastBackup = %v, want nil", st.LastBackup)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	var ids []string
	for i := range 7 {
		p, err := h.Storage.AddProfile(model.ProfileFields{Name: fmt.Sprintf("P%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}

	// P3 gets 4 gifts, P1 3, P5 2; the rest spread over months and occasions.
	plan := []struct {
		profile  int
		occasion string
		price    float64
	}{
		{3, "birthday", 10}, {1, "holiday", 20}, {3, "birthday", 0}, {5, "", 15},
		{1, "holiday", 5}, {3, "thank_you", 0}, {5, "birthday", 0}, {1, "", 0},
		{3, "holiday", 50}, {0, "birthday", 0}, {6, "holiday", 0}, {2, "", 0},
	}
	for i, g := range plan {
		if i == 6 {
			h.Clock.Set(time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC))
		}
		_, err := h.Storage.AddGiftToHistory(model.GiftFields{
			ProfileID: ids[g.profile],
			GiftName:  fmt.Sprintf("gift %d", i),
			Occasion:  g.occasion,
			Price:     g.price,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	st, err := h.Storage.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalProfiles != 7 || st.TotalGiftsGiven != 12 {
		t.Errorf("totals = %d profiles, %d gifts", st.TotalProfiles, st.TotalGiftsGiven)
	}
	if st.TotalSpent != 100 {
		t.Errorf("TotalSpent = %v, want 100", st.TotalSpent)
	}
	if st.EstimatedSpent != 1200 {
		t.Errorf("EstimatedSpent = %v, want 1200", st.EstimatedSpent)
	}

	if len(st.RecentGifts) != 10 {
		t.Fatalf("RecentGifts = %d, want 10", len(st.RecentGifts))
	}
	if st.RecentGifts[0].GiftName != "gift 11" || st.RecentGifts[9].GiftName != "gift 2" {
		t.Errorf("RecentGifts order = %q ... %q", st.RecentGifts[0].GiftName, st.RecentGifts[9].GiftName)
	}

	if len(st.TopProfiles) != 5 {
		t.Fatalf("TopProfiles = %d, want 5", len(st.TopProfiles))
	}
	wantTop := []string{"P3", "P1", "P5", "P0", "P2"}
	for i, name := range wantTop {
		if st.TopProfiles[i].Name != name {
			t.Errorf("TopProfiles[%d] = %s (%d gifts), want %s", i, st.TopProfiles[i].Name, st.TopProfiles[i].GiftCount, name)
		}
	}

	if st.GiftsByMonth["2024-01"] != 6 || st.GiftsByMonth["2024-02"] != 6 {
		t.Errorf("GiftsByMonth = %v", st.GiftsByMonth)
	}
	wantOccasions := map[string]int{"birthday": 4, "holiday": 4, "thank_you": 1, "unknown": 3}
	for k, v := range wantOccasions {
		if st.GiftsByOccasion[k] != v {
			t.Errorf("GiftsByOccasion[%s] = %d, want %d", k, st.GiftsByOccasion[k], v)
		}
	}
	if st.LastBackup == nil {
		t.Error("LastBackup = nil")
	}
	if st.StorageUsage.Used == 0 {
		t.Error("StorageUsage not filled in")
	}
}

func TestStats_UnknownMonth(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)
	payload := `{"profiles":[],"giftHistory":[{"id":"gift_1","giftName":"Pen","status":"given","givenAt":"0001-01-01T00:00:00Z"}]}`
	if _, err := h.Storage.ImportData([]byte(payload)); err != nil {
		t.Fatal(err)
	}

	st, err := h.Storage.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.GiftsByMonth["unknown"] != 1 {
		t.Errorf("GiftsByMonth = %v", st.GiftsByMonth)
	}
}

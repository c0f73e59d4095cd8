package gw_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"giftwise/internal/gw"
	"giftwise/internal/kv"
	"giftwise/internal/model"
	"giftwise/internal/testutil"
)

// newInitialized returns a harness whose storage has been initialized and
// whose event recorder has been cleared.
func newInitialized(t *testing.T) *testutil.Harness {
	t.Helper()
	h := testutil.NewHarness(t)
	if err := h.Storage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	h.Events.Reset()
	return h
}

func TestStorage_Init(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)

	if err := h.Storage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	keys, err := h.Store.Keys()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{gw.KeyGiftHistory, gw.KeyProfiles, gw.KeySettings, gw.KeyUserID, gw.KeyVersion}
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	userID, err := h.Storage.UserID()
	if err != nil || userID != "anon_id-1" {
		t.Errorf("UserID() = %q, %v; want anon_id-1", userID, err)
	}
	version, _, _ := h.Store.Get(gw.KeyVersion)
	if version != model.AppVersion {
		t.Errorf("version = %q, want %q", version, model.AppVersion)
	}

	settings, err := h.Storage.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Theme != model.ThemeLight || !settings.EnableNotifications || settings.AutoBackup || settings.DataRetention != 365 {
		t.Errorf("default settings = %+v", settings)
	}
	if settings.Version != model.AppVersion || !settings.CreatedAt.Equal(h.Clock.Now()) {
		t.Errorf("default settings version/createdAt = %q, %v", settings.Version, settings.CreatedAt)
	}

	wantEvents := []gw.Event{gw.EventProfilesUpdated, gw.EventHistoryUpdated, gw.EventSettingsUpdated, gw.EventInitialized}
	if got := h.Events.Events(); !slices.Equal(got, wantEvents) {
		t.Errorf("events = %v, want %v", got, wantEvents)
	}
}

func TestStorage_InitIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	p, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"})
	if err != nil {
		t.Fatal(err)
	}
	h.Events.Reset()

	if err := h.Storage.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if got := h.Events.Events(); !slices.Equal(got, []gw.Event{gw.EventInitialized}) {
		t.Errorf("events = %v, want only initialized", got)
	}
	userID, _ := h.Storage.UserID()
	if userID != "anon_id-1" {
		t.Errorf("UserID() = %q, want it unchanged", userID)
	}
	if got, _ := h.Storage.Profile(p.ID); got == nil {
		t.Error("profile lost by second Init()")
	}
}

func TestStorage_InitRepairsCorruptRecords(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)
	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"}); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"giftwise_profiles", "giftwise_settings"} {
		if err := h.Backend.Set(key, "%%% not a record"); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Storage.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	profiles, err := h.Storage.Profiles()
	if err != nil || len(profiles) != 0 {
		t.Errorf("Profiles() = %v, %v; want empty", profiles, err)
	}
	settings, _ := h.Storage.Settings()
	if settings.Theme != model.ThemeLight {
		t.Errorf("settings not reset to defaults: %+v", settings)
	}
}

func TestStorage_InitBackendFailure(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)
	boom := errors.New("backend down")
	h.Store.FailReads(boom)

	if err := h.Storage.Init(); !errors.Is(err, boom) {
		t.Errorf("Init() error = %v, want %v", err, boom)
	}
}

func TestStorage_DefaultAPIKey(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarness(t)
	h.Storage.SetDefaultAPIKey("env-key")
	if err := h.Storage.Init(); err != nil {
		t.Fatal(err)
	}

	settings, _ := h.Storage.Settings()
	if settings.GeminiAPIKey != "env-key" {
		t.Errorf("GeminiAPIKey = %q, want env-key", settings.GeminiAPIKey)
	}

	if err := h.Storage.SaveSettings(model.Settings{Theme: model.ThemeDark}); err != nil {
		t.Fatal(err)
	}
	settings, _ = h.Storage.Settings()
	if settings.GeminiAPIKey != "env-key" || settings.Theme != model.ThemeDark {
		t.Errorf("Settings() = %+v, want dark theme with fallback key", settings)
	}

	key := "user-key"
	settings, err := h.Storage.UpdateSettings(model.SettingsPatch{GeminiAPIKey: &key})
	if err != nil || settings.GeminiAPIKey != "user-key" {
		t.Errorf("UpdateSettings() = %+v, %v", settings, err)
	}
}

func TestStorage_UpdateSettings(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)
	h.Clock.Advance(time.Hour)

	dark := model.ThemeDark
	off := false
	got, err := h.Storage.UpdateSettings(model.SettingsPatch{Theme: &dark, EnableNotifications: &off})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if got.Theme != model.ThemeDark || got.EnableNotifications || got.DataRetention != 365 {
		t.Errorf("UpdateSettings() = %+v", got)
	}
	if !got.UpdatedAt.Equal(h.Clock.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, h.Clock.Now())
	}

	stored, _ := h.Storage.Settings()
	if stored.Theme != model.ThemeDark || stored.EnableNotifications {
		t.Errorf("stored settings = %+v", stored)
	}
	if n := h.Events.Count(gw.EventSettingsUpdated); n != 1 {
		t.Errorf("settings-updated events = %d, want 1", n)
	}
}

func TestStorage_FirstVisit(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	first, err := h.Storage.IsFirstVisit()
	if err != nil || !first {
		t.Fatalf("IsFirstVisit() = %v, %v; want true", first, err)
	}
	if err := h.Storage.MarkVisited(); err != nil {
		t.Fatal(err)
	}
	if first, _ := h.Storage.IsFirstVisit(); first {
		t.Error("IsFirstVisit() = true after MarkVisited")
	}

	if err := h.Storage.ClearAllData(); err != nil {
		t.Fatal(err)
	}
	if first, _ := h.Storage.IsFirstVisit(); first {
		t.Error("first-visit flag did not survive ClearAllData")
	}
}

func TestStorage_ClearAllData(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)
	if err := h.Storage.MarkVisited(); err != nil {
		t.Fatal(err)
	}
	p, _ := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"})
	if _, err := h.Storage.AddGiftToHistory(model.GiftFields{ProfileID: p.ID, GiftName: "Pen"}); err != nil {
		t.Fatal(err)
	}
	dark := model.ThemeDark
	if _, err := h.Storage.UpdateSettings(model.SettingsPatch{Theme: &dark}); err != nil {
		t.Fatal(err)
	}
	if err := h.Backend.Set("other_app_key", "untouched"); err != nil {
		t.Fatal(err)
	}
	h.Events.Reset()

	if err := h.Storage.ClearAllData(); err != nil {
		t.Fatalf("ClearAllData() error = %v", err)
	}

	keys, _ := h.Store.Keys()
	if slices.Contains(keys, gw.KeyLastBackup) {
		t.Errorf("keys after clear = %v, want no last_backup", keys)
	}
	if !slices.Contains(keys, gw.KeyFirstVisit) {
		t.Errorf("keys after clear = %v, want first_visit kept", keys)
	}
	if v, ok, _ := h.Backend.Get("other_app_key"); !ok || v != "untouched" {
		t.Error("key outside the namespace was modified")
	}

	profiles, _ := h.Storage.Profiles()
	history, _ := h.Storage.GiftHistory()
	settings, _ := h.Storage.Settings()
	if len(profiles) != 0 || len(history) != 0 {
		t.Errorf("collections after clear = %d profiles, %d gifts", len(profiles), len(history))
	}
	if settings.Theme != model.ThemeLight {
		t.Errorf("settings after clear = %+v, want defaults", settings)
	}
	if lb, _ := h.Storage.LastBackup(); lb != nil {
		t.Errorf("LastBackup() = %v, want nil", lb)
	}

	userID, _ := h.Storage.UserID()
	if userID == "" || userID == "anon_id-1" {
		t.Errorf("UserID() after clear = %q, want a new id", userID)
	}

	events := h.Events.Events()
	if len(events) < 2 || events[len(events)-2] != gw.EventInitialized || events[len(events)-1] != gw.EventDataCleared {
		t.Errorf("events = %v, want ... initialized, data-cleared", events)
	}
}

func TestStorage_LastBackupMarker(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	if lb, err := h.Storage.LastBackup(); err != nil || lb != nil {
		t.Fatalf("LastBackup() = %v, %v; want nil", lb, err)
	}

	h.Clock.Set(time.Date(2024, 3, 1, 8, 0, 0, 123456789, time.UTC))
	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"}); err != nil {
		t.Fatal(err)
	}

	raw, _, _ := h.Store.Get(gw.KeyLastBackup)
	if raw != "2024-03-01T08:00:00.123Z" {
		t.Errorf("stored marker = %q", raw)
	}
	lb, err := h.Storage.LastBackup()
	if err != nil || lb == nil {
		t.Fatalf("LastBackup() = %v, %v", lb, err)
	}
	if want := time.Date(2024, 3, 1, 8, 0, 0, 123000000, time.UTC); !lb.Equal(want) {
		t.Errorf("LastBackup() = %v, want %v", lb, want)
	}

	if err := h.Store.Set(gw.KeyLastBackup, "yesterday"); err != nil {
		t.Fatal(err)
	}
	if lb, err := h.Storage.LastBackup(); err != nil || lb != nil {
		t.Errorf("LastBackup() with garbage = %v, %v; want nil, nil", lb, err)
	}
}

func TestStorageUsage(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)

	u, err := h.Storage.StorageUsage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Used <= 0 || u.Max != gw.MaxStorageBytes {
		t.Errorf("StorageUsage() = %+v", u)
	}
	if u.Percentage < 0 || u.Percentage > 100 {
		t.Errorf("Percentage = %v, want within [0,100]", u.Percentage)
	}
	if !strings.HasSuffix(u.Formatted, "MB / 10MB") {
		t.Errorf("Formatted = %q", u.Formatted)
	}
}

func TestStorageUsage_ClampsAboveBudget(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarnessWithQuota(t, 0)
	if err := h.Storage.Init(); err != nil {
		t.Fatal(err)
	}

	// 6Mi UTF-16 units cost 12 MiB, past the 10 MiB budget.
	if err := h.Store.Set("blob", strings.Repeat("x", 6<<20)); err != nil {
		t.Fatal(err)
	}
	u, err := h.Storage.StorageUsage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Used <= gw.MaxStorageBytes {
		t.Fatalf("Used = %d, want more than %d", u.Used, gw.MaxStorageBytes)
	}
	if u.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", u.Percentage)
	}
}

func TestStorageUsage_CountsUTF16Units(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarnessWithQuota(t, 0)

	// "é" is one unit, "😀" is two.
	if err := h.Store.Set("a", "é😀"); err != nil {
		t.Fatal(err)
	}
	u, err := h.Storage.StorageUsage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Used != 6 {
		t.Errorf("Used = %d, want 6", u.Used)
	}
}

func TestStorageUsage_MatchesQuotaAccounting(t *testing.T) {
	t.Parallel()
	h := newInitialized(t)
	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann", Notes: "Likes tea"}); err != nil {
		t.Fatal(err)
	}

	store, ok := h.Store.BackingStore.(*kv.Store)
	if !ok {
		t.Fatalf("backing store is %T, want *kv.Store", h.Store.BackingStore)
	}
	quotaUsed, err := store.Usage()
	if err != nil {
		t.Fatal(err)
	}
	u, err := h.Storage.StorageUsage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Used != quotaUsed {
		t.Errorf("StorageUsage().Used = %d, quota usage = %d; want equal", u.Used, quotaUsed)
	}
}

func TestStorageUsage_FullWhenQuotaRejects(t *testing.T) {
	t.Parallel()
	h := testutil.NewHarnessWithQuota(t, 0)
	if err := h.Storage.Init(); err != nil {
		t.Fatal(err)
	}
	u, err := h.Storage.StorageUsage()
	if err != nil {
		t.Fatal(err)
	}

	// A quota of exactly the current usage rejects any growth.
	store := kv.NewStore(h.Backend, "giftwise", u.Used)
	if err := store.Set("extra", "x"); !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("Set() error = %v, want ErrQuotaExceeded", err)
	}
	if err := store.Set(gw.KeyVersion, model.AppVersion); err != nil {
		t.Errorf("Set() of an unchanged value at the quota error = %v", err)
	}
}

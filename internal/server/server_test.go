package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"giftwise/internal/gw"
	"giftwise/internal/model"
	"giftwise/internal/testutil"
)

func newTestServer(t *testing.T) (*testutil.Harness, *httptest.Server) {
	h, _, ts := newTestServerWithHub(t)
	return h, ts
}

func newTestServerWithHub(t *testing.T) (*testutil.Harness, *Server, *httptest.Server) {
	t.Helper()
	h := testutil.NewHarness(t)
	if err := h.Storage.Init(); err != nil {
		t.Fatal(err)
	}
	s := New(h.Storage, []string{"http://localhost:5173"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return h, s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	return v
}

func TestProfilesAPI(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/profiles", `{"name":"Ann","email":"a@x.com","relationship":"client"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/profiles = %d %s", resp.StatusCode, body)
	}
	p := decodeBody[model.Profile](t, body)
	if p.ID == "" || p.Name != "Ann" || p.GiftCount != 0 {
		t.Fatalf("created profile = %+v", p)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/profiles/"+p.ID, "")
	if resp.StatusCode != http.StatusOK || decodeBody[model.Profile](t, body).Email != "a@x.com" {
		t.Errorf("GET profile = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, ts, http.MethodPatch, "/api/profiles/"+p.ID, `{"company":"Acme"}`)
	if resp.StatusCode != http.StatusOK || decodeBody[model.Profile](t, body).Company != "Acme" {
		t.Errorf("PATCH profile = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/profiles", "")
	if list := decodeBody[[]model.Profile](t, body); resp.StatusCode != http.StatusOK || len(list) != 1 {
		t.Errorf("GET /api/profiles = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, ts, http.MethodDelete, "/api/profiles/"+p.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE profile = %d", resp.StatusCode)
	}
	resp, body = do(t, ts, http.MethodGet, "/api/profiles/"+p.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted profile = %d %s", resp.StatusCode, body)
	}
}

func TestProfilesAPI_Errors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/profiles", body: `{"email":"a@x.com"}`, status: http.StatusBadRequest},
		{name: "bad relationship", method: http.MethodPost, path: "/api/profiles", body: `{"name":"Ann","relationship":"nemesis"}`, status: http.StatusBadRequest},
		{name: "bad budget", method: http.MethodPost, path: "/api/profiles", body: `{"name":"Ann","budgetRange":"infinite"}`, status: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/api/profiles", body: `{"name":`, status: http.StatusBadRequest},
		{name: "update unknown", method: http.MethodPatch, path: "/api/profiles/profile_nope", body: `{"notes":"x"}`, status: http.StatusNotFound},
		{name: "blank name update", method: http.MethodPatch, path: "/api/profiles/profile_nope", body: `{"name":"  "}`, status: http.StatusBadRequest},
		{name: "gift without name", method: http.MethodPost, path: "/api/gifts", body: `{"profileId":"x"}`, status: http.StatusBadRequest},
		{name: "negative price", method: http.MethodPost, path: "/api/gifts", body: `{"giftName":"Pen","price":-1}`, status: http.StatusBadRequest},
		{name: "bad theme", method: http.MethodPatch, path: "/api/settings", body: `{"theme":"neon"}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if e := decodeBody[errorResponse](t, body); e.Error == "" {
				t.Errorf("error body = %s", body)
			}
		})
	}
}

func TestGiftsAndStatsAPI(t *testing.T) {
	_, ts := newTestServer(t)

	_, body := do(t, ts, http.MethodPost, "/api/profiles", `{"name":"Ann"}`)
	p := decodeBody[model.Profile](t, body)

	resp, body := do(t, ts, http.MethodPost, "/api/gifts", `{"profileId":"`+p.ID+`","giftName":"Pen","price":5}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/gifts = %d %s", resp.StatusCode, body)
	}

	_, body = do(t, ts, http.MethodGet, "/api/profiles/"+p.ID+"/gifts", "")
	if gifts := decodeBody[[]model.GiftEntry](t, body); len(gifts) != 1 || gifts[0].GiftName != "Pen" {
		t.Errorf("profile gifts = %s", body)
	}
	_, body = do(t, ts, http.MethodGet, "/api/gifts", "")
	if gifts := decodeBody[[]model.GiftEntry](t, body); len(gifts) != 1 {
		t.Errorf("gifts = %s", body)
	}

	_, body = do(t, ts, http.MethodGet, "/api/stats", "")
	stats := decodeBody[gw.Stats](t, body)
	if stats.TotalGiftsGiven != 1 || stats.TotalSpent != 5 || len(stats.TopProfiles) != 1 || stats.TopProfiles[0].GiftCount != 1 {
		t.Errorf("stats = %s", body)
	}

	_, body = do(t, ts, http.MethodGet, "/api/usage", "")
	if u := decodeBody[gw.Usage](t, body); u.Max != gw.MaxStorageBytes || u.Used == 0 {
		t.Errorf("usage = %s", body)
	}
}

func TestSettingsAPI(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPatch, "/api/settings", `{"theme":"dark","autoBackup":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH /api/settings = %d %s", resp.StatusCode, body)
	}
	_, body = do(t, ts, http.MethodGet, "/api/settings", "")
	st := decodeBody[model.Settings](t, body)
	if st.Theme != model.ThemeDark || !st.AutoBackup || !st.EnableNotifications {
		t.Errorf("settings = %s", body)
	}
}

func TestExportImportClearAPI(t *testing.T) {
	h, ts := newTestServer(t)
	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"}); err != nil {
		t.Fatal(err)
	}

	resp, export := do(t, ts, http.MethodGet, "/api/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/export = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="giftwise_backup_2024-01-15.json"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	resp, _ = do(t, ts, http.MethodPost, "/api/clear", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST /api/clear = %d", resp.StatusCode)
	}
	if profiles, _ := h.Storage.Profiles(); len(profiles) != 0 {
		t.Fatalf("profiles after clear = %d", len(profiles))
	}

	resp, body := do(t, ts, http.MethodPost, "/api/import", string(export))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/import = %d %s", resp.StatusCode, body)
	}
	if res := decodeBody[gw.ImportResult](t, body); res.Profiles != 1 {
		t.Errorf("import result = %s", body)
	}

	resp, body = do(t, ts, http.MethodPost, "/api/import", `{"giftHistory":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid import = %d", resp.StatusCode)
	}
	if e := decodeBody[errorResponse](t, body); e.Error != "invalid backup format: missing profiles array" {
		t.Errorf("invalid import error = %q", e.Error)
	}
}

func TestQuotaExceededAPI(t *testing.T) {
	h := testutil.NewHarnessWithQuota(t, 8192)
	if err := h.Storage.Init(); err != nil {
		t.Fatal(err)
	}
	s := New(h.Storage, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Close()

	notes := strings.Repeat("n", 8192)
	resp, body := do(t, ts, http.MethodPost, "/api/profiles", `{"name":"Ann","notes":"`+notes+`"}`)
	if resp.StatusCode != http.StatusInsufficientStorage {
		t.Errorf("status = %d, want 507 (%s)", resp.StatusCode, body)
	}
}

func TestCatalogAndHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := do(t, ts, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}

	resp, body := do(t, ts, http.MethodGet, "/api/catalog", "")
	c := decodeBody[catalog](t, body)
	if resp.StatusCode != http.StatusOK || len(c.Relationships) != 8 || len(c.BudgetRanges) != 4 {
		t.Errorf("catalog = %s", body)
	}
	if !bytes.Contains(body, []byte(`"id":"business_partner"`)) {
		t.Errorf("catalog lacks lowercase ids: %s", body)
	}
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/profiles", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/profiles", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q", got)
	}
}

func TestEventsWebsocket(t *testing.T) {
	h, s, ts := newTestServerWithHub(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Wait for the server side to register the client before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg eventMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Event != gw.EventProfilesUpdated {
		t.Errorf("event = %q, want %q", msg.Event, gw.EventProfilesUpdated)
	}
}

func TestEventsWebsocket_RejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Dial() from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestHub_DropsForSlowClients(t *testing.T) {
	hb := newHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ch, ok := hb.add()
	if !ok {
		t.Fatal("add() on open hub failed")
	}
	for range clientBuffer + 5 {
		hb.broadcast(gw.EventHistoryUpdated)
	}
	if len(ch) != clientBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), clientBuffer)
	}

	hb.close()
	if _, ok := hb.add(); ok {
		t.Error("add() after close succeeded")
	}
	hb.remove(ch)
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{name: "no origin", origin: "", want: true},
		{name: "same host", origin: "http://api.local:8080", want: true},
		{name: "listed", origin: "http://localhost:5173", allowed: []string{"http://localhost:5173"}, want: true},
		{name: "wildcard", origin: "http://anything.example", allowed: []string{"*"}, want: true},
		{name: "foreign", origin: "http://evil.example", allowed: []string{"http://localhost:5173"}, want: false},
		{name: "foreign without list", origin: "http://evil.example", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://api.local:8080/api/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originAllowed(r, tt.allowed); got != tt.want {
				t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestDecode_TooLarge(t *testing.T) {
	body := bytes.NewBufferString(`{"name":"` + strings.Repeat("x", 64) + `"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/profiles", body)
	w := httptest.NewRecorder()

	var fields model.ProfileFields
	if decode(w, r, 16, &fields) {
		t.Fatal("decode() accepted an oversized body")
	}
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func send(t *testing.T, ts *httptest.Server, method, path, body string, header http.Header) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestForeignOriginWritesRejected(t *testing.T) {
	h, ts := newTestServer(t)
	if _, err := h.Storage.AddProfile(model.ProfileFields{Name: "Ann"}); err != nil {
		t.Fatal(err)
	}
	foreign := http.Header{"Origin": []string{"https://evil.example"}}
	jsonFrom := func(origin string) http.Header {
		return http.Header{"Origin": []string{origin}, "Content-Type": []string{"application/json"}}
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header http.Header
	}{
		{name: "clear", method: http.MethodPost, path: "/api/clear", header: foreign},
		{name: "import", method: http.MethodPost, path: "/api/import", body: `{"profiles":[],"giftHistory":[]}`, header: jsonFrom("https://evil.example")},
		{name: "add profile", method: http.MethodPost, path: "/api/profiles", body: `{"name":"Mallory"}`, header: jsonFrom("https://evil.example")},
		{name: "delete profile", method: http.MethodDelete, path: "/api/profiles/profile_id-2", header: foreign},
		{name: "settings", method: http.MethodPatch, path: "/api/settings", body: `{"theme":"dark"}`, header: jsonFrom("https://evil.example")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := send(t, ts, tt.method, tt.path, tt.body, tt.header)
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want 403", resp.StatusCode)
			}
		})
	}

	profiles, err := h.Storage.Profiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Ann" {
		t.Errorf("profiles after rejected writes = %+v, want Ann only", profiles)
	}
	if st, _ := h.Storage.Settings(); st.Theme != model.ThemeLight {
		t.Errorf("theme after rejected write = %q", st.Theme)
	}

	// Listed origins still get through.
	resp := send(t, ts, http.MethodPost, "/api/profiles", `{"name":"Bob"}`, jsonFrom("http://localhost:5173"))
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("listed origin status = %d, want 201", resp.StatusCode)
	}
	// Reads from foreign pages are not blocked server-side; CORS hides them.
	resp = send(t, ts, http.MethodGet, "/api/profiles", "", foreign)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("foreign GET status = %d, want 200", resp.StatusCode)
	}
}

func TestNonJSONBodiesRejected(t *testing.T) {
	h, ts := newTestServer(t)

	plain := http.Header{"Content-Type": []string{"text/plain"}}
	resp := send(t, ts, http.MethodPost, "/api/import", `{"profiles":[{"id":"x","name":"Mallory"}],"giftHistory":[]}`, plain)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain import status = %d, want 415", resp.StatusCode)
	}
	if profiles, _ := h.Storage.Profiles(); len(profiles) != 0 {
		t.Errorf("profiles after rejected import = %+v, want none", profiles)
	}

	form := http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}}
	resp = send(t, ts, http.MethodPost, "/api/profiles", `name=Mallory`, form)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("form add status = %d, want 415", resp.StatusCode)
	}
}

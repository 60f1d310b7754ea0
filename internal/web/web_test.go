package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shiftcal/internal/config"
	"shiftcal/internal/model"
	"shiftcal/internal/prefs"
	"shiftcal/internal/rotation"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "preview.png")
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, withPrefs bool) (*Server, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)}
	opts := Options{Now: clk.Now}
	if withPrefs {
		store, err := prefs.NewFileStore(filepath.Join(t.TempDir(), "prefs.yaml"))
		require.NoError(t, err)
		opts.Prefs = prefs.New(store)
	}
	return NewServer(cfg, opts), clk
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s, _ := newTestServer(t, cfg, false)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/team", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	// /health stays open for probes.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/team", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/team", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuth_DisabledWhenIncomplete(t *testing.T) {
	cfg := testConfig(t)
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	s, _ := newTestServer(t, cfg, false)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/api/team", "").Code)
}

func TestShifts_FirstWeek(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/api/shifts?team=A&from=2025-01-20&to=2025-01-26", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp shiftsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, rotation.TeamA, resp.Team)
	assert.Equal(t, "2025-01-20", resp.ReferenceDate)
	assert.Equal(t, "carry", resp.WeekendPolicy)

	codes := make([]int, 0, len(resp.Days))
	for _, d := range resp.Days {
		codes = append(codes, d.Code)
	}
	assert.Equal(t, []int{2, 2, 3, 3, 0, 0, 0}, codes)
	assert.Equal(t, "day", resp.Days[0].Shift)
	assert.Equal(t, "День (2)", resp.Days[0].Label)
}

func TestShifts_DefaultsToCurrentMonth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/api/shifts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp shiftsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-03-01", resp.From)
	assert.Equal(t, "2025-03-31", resp.To)
	assert.Len(t, resp.Days, 31)
}

func TestShifts_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	h := s.Handler()
	for _, target := range []string{
		"/api/shifts?team=Z",
		"/api/shifts?from=2025-13-01",
		"/api/shifts?from=2025-03-10&to=2025-03-01",
		"/api/shifts?from=2025-01-01&to=2030-01-01",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`, target)
	}
}

func TestMonth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/api/month?team=b&month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p model.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, rotation.TeamB, p.Team)
	assert.Equal(t, "2025-03", p.Main.Key)
	require.Len(t, p.Planner, 3)
	assert.Equal(t, "2025-02", p.Planner[0].Key)
	assert.Equal(t, "2025-04", p.Planner[2].Key)
	assert.Len(t, p.Legend, 4)

	rec = do(t, s.Handler(), http.MethodGet, "/api/month?month=march", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeam_PutAndGet(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), true)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/team", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"team":"A"}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/team", `{"team":"c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"team":"C"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/team", "")
	assert.JSONEq(t, `{"team":"C"}`, rec.Body.String())

	// Pages without ?team= follow the stored preference.
	rec = do(t, h, http.MethodGet, "/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="btn active" data-team="C"`)
}

func TestTeam_PutRejected(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), true)
	h := s.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/team", `{"team":"E"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/team", `not json`).Code)

	noPrefs, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, noPrefs.Handler(), http.MethodPut, "/api/team", `{"team":"B"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCalendar_HTML(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/calendar?team=D&month=2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, `lang="ru"`)
	assert.Contains(t, body, "Март 2025")
	assert.Contains(t, body, "Планировщик")
	assert.Contains(t, body, `class="btn active" data-team="D"`)
	assert.Contains(t, body, "month=2025-02")
	assert.Contains(t, body, "month=2025-04")
	assert.Contains(t, body, " today")
}

func TestRoot_Redirects(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/calendar", rec.Header().Get("Location"))
}

func TestICS(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	rec := do(t, s.Handler(), http.MethodGet, "/shifts.ics?team=A&from=2025-03&months=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "shifts-A.ics")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")

	for _, target := range []string{"/shifts.ics?months=0", "/shifts.ics?months=99", "/shifts.ics?from=bad"} {
		assert.Equal(t, http.StatusBadRequest, do(t, s.Handler(), http.MethodGet, target, "").Code, target)
	}
}

func TestPreview(t *testing.T) {
	cfg := testConfig(t)
	s, _ := newTestServer(t, cfg, false)

	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/preview.png", "").Code)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, os.WriteFile(cfg.Snapshot.Path, png, 0o644))
	rec := do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestPageCache(t *testing.T) {
	s, clk := newTestServer(t, testConfig(t), false)
	march := rotation.Month{Year: 2025, Month: time.March}

	p1, err := s.page(rotation.TeamA, march)
	require.NoError(t, err)
	p2, err := s.page(rotation.TeamA, march)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	// A new day rebuilds so the today marker moves.
	clk.Advance(24 * time.Hour)
	p3, err := s.page(rotation.TeamA, march)
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)
	assert.Equal(t, time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC), p3.Today)

	s.InvalidateCache()
	p4, err := s.page(rotation.TeamA, march)
	require.NoError(t, err)
	assert.NotSame(t, p3, p4)
}

func TestSetConfig_AppliesLocale(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	h := s.Handler()
	assert.Contains(t, do(t, h, http.MethodGet, "/calendar?month=2025-03", "").Body.String(), "Март 2025")

	cfg := testConfig(t)
	cfg.Locale = "en"
	s.SetConfig(cfg)

	body := do(t, h, http.MethodGet, "/calendar?month=2025-03", "").Body.String()
	assert.Contains(t, body, "March 2025")
	assert.Contains(t, body, `lang="en"`)
}

func TestServe_Shutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, _ := newTestServer(t, testConfig(t), false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, s, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestOutOfRangeDatesRejected(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	h := s.Handler()
	for _, target := range []string{
		"/api/month?team=A&month=9999-12",
		"/api/month?team=A&month=0001-01",
		"/api/shifts?team=A&to=9999-12-31",
		"/api/shifts?team=A&from=9999-12-01&to=9999-12-31",
		"/calendar?month=2075-02",
		"/shifts.ics?from=9999-01",
		"/shifts.ics?from=2075-01&months=2",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	s.pagesMu.RLock()
	assert.Empty(t, s.pages)
	s.pagesMu.RUnlock()

	// The edges themselves are served.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/month?month="+rotation.MaxMonth.String(), "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/month?month="+rotation.MinMonth.String(), "").Code)
}

func TestPageCache_Bounded(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t), false)
	m := rotation.Month{Year: 2025, Month: time.January}
	for i := 0; i < maxCachedPages+10; i++ {
		_, err := s.page(rotation.TeamA, m.Add(i))
		require.NoError(t, err)
	}
	s.pagesMu.RLock()
	defer s.pagesMu.RUnlock()
	assert.LessOrEqual(t, len(s.pages), maxCachedPages)
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": func() {}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

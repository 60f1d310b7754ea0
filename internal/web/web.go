package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/prefs"
	"shiftcal/internal/rotation"
)

const (
	// maxRangeDays bounds the number of days a single /api/shifts response
	// lists. Parsed dates are separately limited to rotation.MinMonth..MaxMonth.
	maxRangeDays = 800
	// maxCachedPages caps the page cache; it is cleared when full.
	maxCachedPages = 64
)

//go:embed templates/*.html
var templateFS embed.FS

var calendarTmpl = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"int": func(s rotation.Shift) int { return int(s) },
}).ParseFS(templateFS, "templates/calendar.html"))

// Server provides the HTML calendar and the JSON/ICS APIs.
type Server struct {
	cfgMu sync.RWMutex
	cfg   *config.Config

	prefs       *prefs.Preferences
	previewPath string
	now         func() time.Time
	mux         *http.ServeMux

	// Built pages keyed by team and month. Entries remember which day was
	// "today" when they were built and are ignored once that changes.
	pagesMu sync.RWMutex
	pages   map[pageKey]*pageEntry
}

type pageKey struct {
	team  rotation.Team
	month rotation.Month
}

type pageEntry struct {
	page  *model.Page
	today time.Time
}

// Options are the optional collaborators of a Server.
type Options struct {
	// Prefs stores the selected team. Nil means the configured default team
	// is always used and PUT /api/team is rejected.
	Prefs *prefs.Preferences
	// PreviewPath is the PNG served at /preview.png.
	PreviewPath string
	// Now overrides the clock (tests).
	Now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PreviewPath == "" {
		opts.PreviewPath = cfg.Snapshot.Path
	}
	s := &Server{
		cfg:         cfg,
		prefs:       opts.Prefs,
		previewPath: opts.PreviewPath,
		now:         opts.Now,
		mux:         http.NewServeMux(),
		pages:       make(map[pageKey]*pageEntry),
	}
	s.registerRoutes()
	return s
}

// Config returns the active configuration.
func (s *Server) Config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig swaps in a reloaded configuration and drops cached pages.
func (s *Server) SetConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	s.InvalidateCache()
}

// InvalidateCache drops every cached page.
func (s *Server) InvalidateCache() {
	s.pagesMu.Lock()
	n := len(s.pages)
	s.pages = make(map[pageKey]*pageEntry)
	s.pagesMu.Unlock()
	appLog.Debug("page cache cleared", "entries", n)
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	return s.basicAuthMiddleware(h)
}

// basicAuthCredentials reports the configured Basic Auth pair, if any.
func (s *Server) basicAuthCredentials() (string, string, bool) {
	cfg := s.Config()
	if cfg == nil || cfg.BasicAuth == nil {
		return "", "", false
	}
	// Empty username or password disables auth.
	if cfg.BasicAuth.Username == "" || cfg.BasicAuth.Password == "" {
		return "", "", false
	}
	return cfg.BasicAuth.Username, cfg.BasicAuth.Password, true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
// Credentials are read per request so a config reload takes effect at once.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, enabled := s.basicAuthCredentials()
		if !enabled || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="shiftcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. The caller binds ln so it knows the port is open before
// starting anything that connects to it.
func Serve(ctx context.Context, s *Server, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("stopping HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/shifts", s.handleShifts)
	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/team", s.handleGetTeam)
	s.mux.HandleFunc("PUT /api/team", s.handlePutTeam)
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /shifts.ics", s.handleICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// today is the current calendar day in the configured timezone.
func (s *Server) today() time.Time {
	loc := resolveLocationOrLocal(s.Config().Timezone)
	return rotation.Date(s.now().In(loc))
}

func (s *Server) calendarOptions() calendar.Options {
	cfg := s.Config()
	return calendar.Options{
		WeekStart: calendar.ParseWeekStart(cfg.WeekStart),
		Locale:    calendar.LocaleFor(cfg.Locale),
		Policy:    cfg.WeekendPolicy(),
	}
}

// resolveTeam reads ?team=, falling back to the stored preference and then
// the configured default.
func (s *Server) resolveTeam(r *http.Request) (rotation.Team, error) {
	if raw := r.URL.Query().Get("team"); raw != "" {
		return rotation.ParseTeam(raw)
	}
	fallback := s.Config().DefaultTeam()
	if s.prefs == nil {
		return fallback, nil
	}
	return s.prefs.SelectedTeam(r.Context(), fallback), nil
}

// resolveMonth reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) resolveMonth(r *http.Request) (rotation.Month, error) {
	if raw := r.URL.Query().Get("month"); raw != "" {
		return rotation.ParseMonth(raw)
	}
	return rotation.MonthOf(s.today()), nil
}

// page returns the cached page for team/month, building it when missing or
// built on a different day.
func (s *Server) page(team rotation.Team, month rotation.Month) (*model.Page, error) {
	key := pageKey{team: team, month: month}
	today := s.today()

	s.pagesMu.RLock()
	e := s.pages[key]
	s.pagesMu.RUnlock()
	if e != nil && e.today.Equal(today) {
		return e.page, nil
	}

	p, err := calendar.Build(team, month, today, s.calendarOptions())
	if err != nil {
		return nil, err
	}

	s.pagesMu.Lock()
	if len(s.pages) >= maxCachedPages {
		s.pages = make(map[pageKey]*pageEntry)
	}
	s.pages[key] = &pageEntry{page: p, today: today}
	s.pagesMu.Unlock()

	appLog.Debug("page built", "team", string(team), "month", month.String())
	return p, nil
}

// shiftDTO is a JSON-friendly view of one day.
type shiftDTO struct {
	Date  string `json:"date"`
	Code  int    `json:"code"`
	Shift string `json:"shift"`
	Label string `json:"label"`
}

// shiftsResponse is the JSON response shape for /api/shifts.
type shiftsResponse struct {
	Team          rotation.Team `json:"team"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	ReferenceDate string        `json:"reference_date"`
	WeekendPolicy string        `json:"weekend_policy"`
	Days          []shiftDTO    `json:"days"`
}

// handleShifts returns the shift of every day in a range.
//
// GET /api/shifts?team=A&from=2025-03-01&to=2025-03-31
//   - team: defaults to the stored preference
//   - from/to: default to the first/last day of the current month
func (s *Server) handleShifts(w http.ResponseWriter, r *http.Request) {
	team, err := s.resolveTeam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current := rotation.MonthOf(s.today())
	q := r.URL.Query()
	from, err := parseDateDefault(q.Get("from"), current.First())
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := parseDateDefault(q.Get("to"), current.Last())
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "range exceeds "+strconv.Itoa(maxRangeDays)+" days")
		return
	}

	opts := s.calendarOptions()
	sched := rotation.NewSchedule(team, rotation.MonthOf(to), opts.Policy)

	days := make([]shiftDTO, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		sh := sched.ShiftOn(d)
		days = append(days, shiftDTO{
			Date:  d.Format(rotation.DateLayout),
			Code:  int(sh),
			Shift: sh.String(),
			Label: opts.Locale.ShiftName(sh),
		})
	}

	writeJSON(w, http.StatusOK, shiftsResponse{
		Team:          team,
		From:          from.Format(rotation.DateLayout),
		To:            to.Format(rotation.DateLayout),
		ReferenceDate: rotation.ReferenceDate.Format(rotation.DateLayout),
		WeekendPolicy: string(opts.Policy),
		Days:          days,
	})
}

// handleMonth returns the full page layout (main grid, planner, legend).
//
// GET /api/month?team=B&month=2025-03
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	team, err := s.resolveTeam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month, err := s.resolveMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.page(team, month)
	if err != nil {
		appLog.Error("api month: build failed", err, "team", string(team), "month", month.String())
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type teamRequest struct {
	Team string `json:"team"`
}

type teamResponse struct {
	Team rotation.Team `json:"team"`
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	fallback := s.Config().DefaultTeam()
	team := fallback
	if s.prefs != nil {
		team = s.prefs.SelectedTeam(r.Context(), fallback)
	}
	writeJSON(w, http.StatusOK, teamResponse{Team: team})
}

func (s *Server) handlePutTeam(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "team preference storage is disabled")
		return
	}
	var req teamRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	team, err := rotation.ParseTeam(req.Team)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.prefs.SetSelectedTeam(r.Context(), team); err != nil {
		appLog.Error("api team: save failed", err, "team", string(team))
		writeError(w, http.StatusInternalServerError, "failed to save team")
		return
	}
	appLog.Info("selected team changed", "team", string(team))
	writeJSON(w, http.StatusOK, teamResponse{Team: team})
}

// calendarData feeds templates/calendar.html.
type calendarData struct {
	Page         *model.Page
	Lang         string
	TeamLabel    string
	PlannerLabel string
	PrevMonth    string
	NextMonth    string
}

// handleCalendar renders the HTML calendar. The root element carries
// data-ready="true" so the snapshot job knows rendering is complete.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	team, err := s.resolveTeam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	month, err := s.resolveMonth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := s.page(team, month)
	if err != nil {
		appLog.Error("calendar: build failed", err, "team", string(team), "month", month.String())
		http.Error(w, "failed to build calendar", http.StatusInternalServerError)
		return
	}

	loc := calendar.LocaleFor(s.Config().Locale)
	data := calendarData{
		Page:         p,
		Lang:         loc.Code,
		TeamLabel:    loc.TeamLabel,
		PlannerLabel: loc.Planner,
		PrevMonth:    month.Add(-1).String(),
		NextMonth:    month.Add(1).String(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calendarTmpl.Execute(w, data); err != nil {
		appLog.Error("calendar: template execution failed", err)
	}
}

// handleICS serves an iCalendar feed.
//
// GET /shifts.ics?team=A&from=2025-03&months=3&off=1
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	team, err := s.resolveTeam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	first := rotation.MonthOf(s.today())
	if raw := q.Get("from"); raw != "" {
		if first, err = rotation.ParseMonth(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	months := parseIntDefault(q.Get("months"), 3)
	if months <= 0 || months > 24 {
		writeError(w, http.StatusBadRequest, "months must be between 1 and 24")
		return
	}
	if err := rotation.CheckMonth(first.Add(months - 1)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.Config()
	body, err := ics.ExportMonths(team, first, months, cfg.WeekendPolicy(), ics.ExportOptions{
		Locale:     calendar.LocaleFor(cfg.Locale),
		IncludeOff: q.Get("off") == "1",
		Stamp:      s.now(),
	})
	if err != nil {
		appLog.Error("ics export failed", err, "team", string(team))
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shifts-`+string(team)+`.ics"`)
	_, _ = w.Write([]byte(body))
}

// handlePreview serves the last snapshot PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile returns 404/500 as appropriate.
	http.ServeFile(w, r, s.previewPath)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDateDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return rotation.ParseDate(s)
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

// writeJSON encodes v before writing the header so an encoding failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		appLog.Error("failed to encode JSON response", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"roomcal/internal/config"
	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/store"
)

const dateLayout = "2006-01-02"

// RefreshFunc reloads the calendar files and returns the new store.
type RefreshFunc func(ctx context.Context) (*store.Store, error)

// Server provides the HTTP API over the current room store.
//
// The store is replaced wholesale on every reload; handlers take a snapshot
// under the read lock and never observe a partially built store.
type Server struct {
	cfg     *config.Config
	loc     *time.Location
	mux     *http.ServeMux
	refresh RefreshFunc
	now     func() time.Time

	mu       sync.RWMutex
	store    *store.Store
	loadedAt time.Time
}

// NewServer constructs a new Server. refresh may be nil, in which case
// POST /api/refresh answers 501.
func NewServer(cfg *config.Config, refresh RefreshFunc) *Server {
	s := &Server{
		cfg:     cfg,
		loc:     cfg.Location(),
		mux:     http.NewServeMux(),
		refresh: refresh,
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// SetStore swaps in a freshly parsed store.
func (s *Server) SetStore(st *store.Store) {
	s.mu.Lock()
	s.store = st
	s.loadedAt = s.now()
	s.mu.Unlock()
}

func (s *Server) snapshot() (*store.Store, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store, s.loadedAt
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="RoomCal", charset="UTF-8"`)
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

// ListenAndServe serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.withStore(s.handleRooms))
	s.mux.HandleFunc("GET /api/events", s.withStore(s.handleEvents))
	s.mux.HandleFunc("GET /api/events/range", s.withStore(s.handleEventsRange))
	s.mux.HandleFunc("GET /api/available", s.withStore(s.handleAvailable))
	s.mux.HandleFunc("GET /api/summary", s.withStore(s.handleSummary))
	s.mux.HandleFunc("GET /api/debug", s.withStore(s.handleDebug))
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type storeHandler func(w http.ResponseWriter, r *http.Request, st *store.Store, loadedAt time.Time)

// withStore answers 503 until the first successful load.
func (s *Server) withStore(h storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, loadedAt := s.snapshot()
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, "calendars not loaded yet")
			return
		}
		h(w, r, st, loadedAt)
	}
}

// eventDTO is a JSON-friendly view of model.Event.
type eventDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Organizer   string    `json:"organizer,omitempty"`
	Room        string    `json:"room"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func toDTOs(events []model.Event, loc *time.Location) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			SourceID:    ev.Source,
			UID:         ev.UID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			Organizer:   ev.Organizer,
			Room:        ev.Room,
			Start:       ev.Start.In(loc),
			End:         ev.End.In(loc),
		})
	}
	return out
}

type roomsResponse struct {
	Rooms    []string  `json:"rooms"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request, st *store.Store, loadedAt time.Time) {
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: st.Rooms(), LoadedAt: loadedAt})
}

type eventsResponse struct {
	Room   string     `json:"room,omitempty"`
	Date   string     `json:"date,omitempty"`
	Events []eventDTO `json:"events"`
}

// handleEvents returns the events of one room (or every room), optionally
// restricted to one calendar day.
//
// GET /api/events?room=Batten%20201&date=2025-08-28
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, st *store.Store, _ time.Time) {
	loc := s.loc
	q := r.URL.Query()
	room := q.Get("room")

	var date time.Time
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Room:   room,
		Date:   q.Get("date"),
		Events: toDTOs(st.EventsForRoom(room, date), loc),
	})
}

type rangeResponse struct {
	Room       string     `json:"room,omitempty"`
	Period     string     `json:"period"`
	RangeStart time.Time  `json:"range_start"`
	RangeEnd   time.Time  `json:"range_end"`
	WeekStart  string     `json:"week_start"`
	Events     []eventDTO `json:"events"`
}

// handleEventsRange returns the events of the day, week or month containing
// date (default today).
//
// GET /api/events/range?room=&date=2025-08-28&period=week
func (s *Server) handleEventsRange(w http.ResponseWriter, r *http.Request, st *store.Store, _ time.Time) {
	loc := s.loc
	q := r.URL.Query()

	date, ok := s.dateParam(w, q.Get("date"), loc)
	if !ok {
		return
	}
	period := store.ParsePeriod(q.Get("period"))
	start, end := store.PeriodRange(date, period, s.cfg.WeekStartDay())
	room := q.Get("room")

	writeJSON(w, http.StatusOK, rangeResponse{
		Room:       room,
		Period:     string(period),
		RangeStart: start,
		RangeEnd:   end,
		WeekStart:  s.cfg.WeekStart,
		Events:     toDTOs(st.EventsInRange(room, start, end), loc),
	})
}

type availableResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Rooms []string  `json:"rooms"`
}

// handleAvailable lists rooms that are free for the whole of [start, end).
//
// GET /api/available?start=2025-08-28T09:00:00-04:00&end=2025-08-28T10:00:00-04:00
func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request, st *store.Store, _ time.Time) {
	q := r.URL.Query()
	start, err1 := time.Parse(time.RFC3339, q.Get("start"))
	end, err2 := time.Parse(time.RFC3339, q.Get("end"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "start and end must be RFC 3339 timestamps")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	writeJSON(w, http.StatusOK, availableResponse{
		Start: start,
		End:   end,
		Rooms: st.AvailableRooms(start, end),
	})
}

type summaryResponse struct {
	Date  string                     `json:"date"`
	Rooms map[string]model.RoomUsage `json:"rooms"`
}

// handleSummary reports per-room usage for one calendar day (default today).
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, st *store.Store, _ time.Time) {
	loc := s.loc
	date, ok := s.dateParam(w, r.URL.Query().Get("date"), loc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Date:  date.Format(dateLayout),
		Rooms: st.Usage(date),
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request, st *store.Store, _ time.Time) {
	writeJSON(w, http.StatusOK, st.Debug())
}

type refreshResponse struct {
	TotalEvents int       `json:"total_events"`
	Rooms       []string  `json:"rooms"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// handleRefresh reloads the calendar files immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not configured")
		return
	}

	st, err := s.refresh(r.Context())
	if err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	s.SetStore(st)
	_, loadedAt := s.snapshot()

	writeJSON(w, http.StatusOK, refreshResponse{
		TotalEvents: st.Len(),
		Rooms:       st.Rooms(),
		LoadedAt:    loadedAt,
	})
}

// dateParam parses a YYYY-MM-DD query value; empty means today in loc.
// On failure it writes a 400 and returns false.
func (s *Server) dateParam(w http.ResponseWriter, v string, loc *time.Location) (time.Time, bool) {
	if v == "" {
		return s.now().In(loc), true
	}
	d, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

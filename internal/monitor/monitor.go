// Package monitor reports what the controller is doing. It keeps the most
// recent engine status, prints a console line once the stream of changes
// quiets down, and serves the same snapshot over HTTP for dashboards and
// scripting.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/chase3718/moogate/internal/engine"
)

// Monitor tracks the latest engine status snapshot.
type Monitor struct {
	log     *slog.Logger
	session string
	started time.Time
	quiet   time.Duration

	mu   sync.Mutex
	last engine.Status
	have bool
}

// New creates a monitor. quiet is how long the status stream must be idle
// before a console line is printed; busy passages collapse into one line.
func New(quiet time.Duration, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		log:     log,
		session: uuid.NewString(),
		started: time.Now(),
		quiet:   quiet,
	}
}

// Session returns the unique id of this controller run.
func (m *Monitor) Session() string { return m.session }

// Push records a status snapshot without reporting it.
func (m *Monitor) Push(st engine.Status) {
	m.mu.Lock()
	m.last = st
	m.have = true
	m.mu.Unlock()
}

// Run consumes status updates until ctx ends. Console reporting is
// debounced so a burst of chord events produces a single line.
func (m *Monitor) Run(ctx context.Context, updates <-chan engine.Status) {
	report := m.report
	if m.quiet > 0 {
		d := debounce.New(m.quiet)
		report = func() { d(m.report) }
	}
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			m.Push(st)
			report()
		}
	}
}

func (m *Monitor) report() {
	m.mu.Lock()
	st := m.last
	ok := m.have
	m.mu.Unlock()
	if !ok {
		return
	}
	held := "-"
	if len(st.Held) > 0 {
		held = strings.Join(st.Held, " ")
	}
	m.log.Info("status",
		"gate", st.Gate,
		"note", st.Sounding,
		"held", held,
		"priority", st.PriorityS,
		"cleanup", st.Cleanup,
	)
}

// -------------------- HTTP --------------------

type statusReply struct {
	Session string        `json:"session"`
	Uptime  string        `json:"uptime"`
	Status  engine.Status `json:"status"`
}

// Handler returns the HTTP routes: GET /status and GET /healthz, with
// permissive CORS so a browser dashboard on another port can poll them.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", m.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", m.handleHealthz).Methods(http.MethodGet)
	return cors.Default().Handler(r)
}

func (m *Monitor) handleStatus(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	st := m.last
	m.mu.Unlock()
	reply := statusReply{
		Session: m.session,
		Uptime:  time.Since(m.started).Round(time.Second).String(),
		Status:  st,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		m.log.Error("monitor: encode status", "err", err)
	}
}

func (m *Monitor) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}` + "\n"))
}

// Serve runs the HTTP endpoint until ctx ends. A closed listener during
// shutdown is not reported as an error.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	m.log.Info("monitor: http listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

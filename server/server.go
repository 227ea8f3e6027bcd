package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/cchan987/nengo-viz/component"
	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/health"
	"github.com/cchan987/nengo-viz/metric"
	"github.com/cchan987/nengo-viz/viz"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Server accepts browser connections and wires them to sessions
type Server struct {
	addr        string
	organizer   *viz.Organizer
	logger      *slog.Logger
	metrics     *metric.Registry
	health      *health.Monitor
	openBrowser bool

	upgrader websocket.Upgrader

	running    atomic.Bool
	httpServer *http.Server
	listener   net.Listener
	group      *errgroup.Group
	serveCtx   context.Context
	cancel     context.CancelFunc

	mu       sync.Mutex
	sessions []*viz.Session
	byUID    map[string]*viz.Session
}

// Option configures a Server
type Option func(*Server)

// WithAddr sets the listen address (default ":8080")
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics mounts the metrics registry at /metrics
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) { s.metrics = r }
}

// WithOpenBrowser opens the local browser once the listener is up
func WithOpenBrowser(open bool) Option {
	return func(s *Server) { s.openBrowser = open }
}

// New creates a server for an organizer
func New(org *viz.Organizer, opts ...Option) (*Server, error) {
	if org == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Server", "New", "organizer validation")
	}

	s := &Server{
		addr:      ":8080",
		organizer: org,
		logger:    slog.Default(),
		health:    health.NewMonitor(),
		byUID:     make(map[string]*viz.Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Start begins accepting connections. It returns once the listener is
// bound; serving continues in the background until Stop.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "Start", "context validation")
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "start check")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return errors.WrapTransient(err, "Server", "Start", "listen")
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/viz_component", s.handleComponent)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	serveCtx, cancel := context.WithCancel(ctx)
	s.serveCtx = serveCtx
	s.cancel = cancel

	s.httpServer = &http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return serveCtx
		},
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(serveCtx)
	s.group = group

	group.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			return errors.WrapTransient(err, "Server", "Serve", "http serve")
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	s.logger.Info("listener started", "addr", ln.Addr().String())
	s.health.UpdateHealthy("server", "listening")

	if s.openBrowser {
		url := fmt.Sprintf("http://%s/", ln.Addr().String())
		if err := openBrowser(url); err != nil {
			s.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}
	return nil
}

// Addr returns the bound listener address, usable after Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down and finishes every session it
// started. Sessions observe the stop within one simulation quantum.
func (s *Server) Stop(timeout time.Duration) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.WrapTransient(err, "Server", "Stop", "http shutdown")
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		if err := s.group.Wait(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = nil
	s.byUID = make(map[string]*viz.Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Finish()
	}
	for _, sess := range sessions {
		select {
		case <-sess.Done():
		case <-shutdownCtx.Done():
			s.logger.Warn("session did not exit before shutdown deadline")
		}
	}

	s.health.UpdateUnhealthy("server", "stopped")
	s.logger.Info("listener stopped")
	return shutdownErr
}

// page is the minimal shell the browser loads; the embedded payload
// carries one JSON component description per line, and the script
// opens one websocket per component uid.
var page = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>nengo-viz</title></head>
<body>
<script id="components" type="application/x-nengo-viz">
{{.Payload}}
</script>
<script>
var lines = document.getElementById("components").textContent.trim().split("\n");
lines.forEach(function (line) {
    var desc = JSON.parse(line);
    var ws = new WebSocket("ws://" + location.host + "/viz_component?uid=" + desc.uid);
    ws.onopen = function () { console.log("connected", desc.type, desc.uid); };
});
</script>
</body>
</html>
`))

// handleIndex starts a session for this page load and serves the page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Sessions outlive the page request; they are tied to the server's
	// lifetime, not the request's.
	sess, err := s.organizer.StartSession(s.serveCtx)
	if err != nil {
		s.logger.Error("failed to start session", "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	for _, uid := range sess.UIDs() {
		s.byUID[uid] = sess
	}
	s.mu.Unlock()

	payload, err := sess.Payload()
	if err != nil {
		s.logger.Error("failed to render payload", "error", err)
		http.Error(w, "failed to render payload", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, map[string]any{"Payload": template.HTML(payload)}); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// handleHealth reports aggregated server and session health as JSON.
// A failed session build makes the whole system unhealthy (503); a
// session still building makes it degraded (200).
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	sessions := append([]*viz.Session(nil), s.sessions...)
	s.mu.Unlock()

	for i, sess := range sessions {
		name := fmt.Sprintf("session-%d", i)
		switch sess.State() {
		case viz.StateBuilding:
			s.health.UpdateDegraded(name, "building")
		case viz.StateRunning:
			s.health.UpdateHealthy(name, "running")
		case viz.StateFinished:
			s.health.UpdateHealthy(name, "finished")
		case viz.StateFailed:
			msg := "build failed"
			if err := sess.Err(); err != nil {
				msg = err.Error()
			}
			s.health.UpdateUnhealthy(name, msg)
		}
	}

	status := s.health.Aggregate("nengoviz")
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Debug("failed to encode health status", "error", err)
	}
}

// handleComponent claims the component for uid and hands it this
// connection. The claim is one-shot: a second connection for the same
// uid gets 404.
func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		http.Error(w, "missing uid", http.StatusBadRequest)
		return
	}

	c, err := s.organizer.Claim(uid)
	if err != nil {
		if errors.IsNotFound(err) {
			http.Error(w, "unknown or already-claimed component", http.StatusNotFound)
			return
		}
		s.logger.Error("claim failed", "uid", uid, "error", err)
		http.Error(w, "claim failed", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error; the component is lost
		// to this connection but the claim stands.
		s.logger.Warn("websocket upgrade failed", "uid", uid, "error", err)
		return
	}

	s.logger.Debug("component connected", "uid", uid, "kind", c.Meta().Kind)
	s.serveComponent(r.Context(), conn, c)

	// The control connection is the page's lifeline: when it closes,
	// the page is gone and the owning session stops.
	if c.Meta().Kind == component.KindControl {
		s.mu.Lock()
		sess := s.byUID[uid]
		s.mu.Unlock()
		if sess != nil {
			s.logger.Debug("control disconnected, finishing session", "uid", uid)
			sess.Finish()
		}
	}
}

// serveComponent pumps the component over its websocket: the payload
// first, then inbound control messages for the component kinds that
// accept them.
func (s *Server) serveComponent(ctx context.Context, conn *websocket.Conn, c component.Component) {
	defer conn.Close()

	payload, err := c.Payload()
	if err != nil {
		s.logger.Error("failed to serialize component", "uid", c.UID(), "error", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Debug("component write failed", "uid", c.UID(), "error", err)
		return
	}

	ping := time.NewTicker(defaultPingInterval)
	defer ping.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("component disconnected", "uid", c.UID())
			return
		}
		s.dispatch(c, raw)
	}
}

// dispatch applies an inbound browser message to the component
func (s *Server) dispatch(c component.Component, raw []byte) {
	slider, ok := c.(*component.Slider)
	if !ok {
		return
	}

	var msg struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Debug("ignoring malformed message", "uid", c.UID(), "error", err)
		return
	}
	slider.SetValue(msg.Value)
}

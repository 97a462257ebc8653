// Package bridge exposes the daemon to editor plugins over local HTTP: a
// JSON endpoint and a WebSocket stream for host events, the command
// surface, status and metrics.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
	"github.com/hammamikhairi/voicehooks/internal/observability"
)

// Source is the Event.Source value stamped on events without one.
const Source = "bridge"

const (
	maxBodyBytes  = 1 << 20
	writeTimeout  = 10 * time.Second
	readTimeout   = 120 * time.Second
	clientBacklog = 16
)

// Status is the read side of the voice notifier.
type Status interface {
	Enabled() bool
	Speaking() bool
	Config() domain.VoiceConfig
}

// CommandRunner executes named commands.
type CommandRunner interface {
	Run(ctx context.Context, name string) error
}

// StatusResponse is served on /v1/status and pushed to WebSocket clients.
type StatusResponse struct {
	Enabled  bool               `json:"enabled"`
	Speaking bool               `json:"speaking"`
	Config   domain.VoiceConfig `json:"config"`
}

// Message is a server-to-client WebSocket frame.
type Message struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Status       *StatusResponse `json:"status,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Message types.
const (
	MsgHello  = "hello"
	MsgStatus = "status"
	MsgError  = "error"
)

type client struct {
	id       string
	outbound chan Message
}

// Server routes bridge requests.
type Server struct {
	events   chan<- domain.Event
	status   Status
	commands CommandRunner
	metrics  *observability.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// New creates a bridge that pushes accepted events onto events.
func New(events chan<- domain.Event, status Status, commands CommandRunner, metrics *observability.Metrics, log *logger.Logger) *Server {
	return &Server{
		events:   events,
		status:   status,
		commands: commands,
		metrics:  metrics,
		log:      log,
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrNone,
		},
	}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/events/ws", s.handleEventsWS)
	r.Group(func(r chi.Router) {
		r.Use(localOrigin)
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/v1/events", s.handleEvents)
		r.Post("/v1/commands/{name}", s.handleCommand)
	})
	return r
}

// localOrigin rejects browser requests from other origins, so a web page
// cannot drive the daemon through the loopback port.
func localOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOriginOrNone(r) {
			respondError(w, http.StatusForbidden, "forbidden_origin", "cross-origin requests are not accepted")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PublishStatus pushes the current status to every WebSocket client.
// Slow clients miss updates rather than block the caller.
func (s *Server) PublishStatus() {
	st := s.snapshot()
	msg := Message{Type: MsgStatus, Status: &st}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		select {
		case c.outbound <- msg:
		default:
			s.log.Debug("bridge: client %s backlog full, status dropped", c.id)
		}
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.Clients(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := decodeEvents(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.observe("http", "invalid")
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			s.observe("http", "invalid")
			respondError(w, http.StatusBadRequest, "invalid_event", err.Error())
			return
		}
	}
	for _, ev := range events {
		if err := s.submit(r.Context(), ev); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
		s.observe("http", "accepted")
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"accepted": len(events)})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.commands.Run(r.Context(), name); err != nil {
		if errors.Is(err, domain.ErrUnknownCommand) {
			respondError(w, http.StatusNotFound, "unknown_command", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "command_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{id: uuid.NewString(), outbound: make(chan Message, clientBacklog)}
	s.register(c)
	defer s.unregister(c)
	s.log.Info("bridge: client %s connected", c.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	st := s.snapshot()
	c.outbound <- Message{Type: MsgHello, ConnectionID: c.id, Status: &st}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-c.outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		ev, err := parseEvent(data)
		if err == nil {
			err = s.submit(ctx, ev)
		}
		if err != nil {
			s.observe("ws", "invalid")
			select {
			case c.outbound <- Message{Type: MsgError, Error: err.Error()}:
			default:
			}
			continue
		}
		s.observe("ws", "accepted")
	}

	cancel()
	<-writerDone
	s.log.Info("bridge: client %s disconnected", c.id)
}

// submit hands ev to the event hub, blocking until it is accepted or ctx
// ends.
func (s *Server) submit(ctx context.Context, ev domain.Event) error {
	if ev.Source == "" {
		ev.Source = Source
	}
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submitting %s: %w", ev.Type, ctx.Err())
	}
}

func (s *Server) snapshot() StatusResponse {
	return StatusResponse{
		Enabled:  s.status.Enabled(),
		Speaking: s.status.Speaking(),
		Config:   s.status.Config(),
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	n := len(s.clients)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.BridgeClients.Set(float64(n))
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	n := len(s.clients)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.BridgeClients.Set(float64(n))
	}
}

func (s *Server) observe(transport, outcome string) {
	if s.metrics != nil {
		s.metrics.BridgeMessages.WithLabelValues(transport, outcome).Inc()
	}
}

// decodeEvents accepts a single event object or an array of them.
func decodeEvents(r io.Reader) ([]domain.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	if data[0] == '[' {
		var events []domain.Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return []domain.Event{ev}, nil
}

func parseEvent(data []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decoding event: %w", err)
	}
	return ev, ev.Validate()
}

// sameOriginOrNone allows non-browser clients (no Origin header) and pages
// served from the bridge itself. Any other web page must not drive the
// daemon.
func sameOriginOrNone(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

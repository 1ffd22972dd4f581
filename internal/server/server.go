// Package server talks to the browser extension over a WebSocket and exposes
// it as the live tab host.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lotas/seitenleiste/internal/applog"
	"github.com/lotas/seitenleiste/internal/host"
	"nhooyr.io/websocket"
)

// ErrNotLive means no extension is connected to answer a command.
var ErrNotLive = fmt.Errorf("no extension connected: %w", host.ErrNotConnected)

// DefaultTimeout bounds a command round trip when the caller's context has
// no deadline.
const DefaultTimeout = 5 * time.Second

// IncomingMsg is a message from the extension: either a command response
// (type "response") or a tab/group event.
type IncomingMsg struct {
	Type string `json:"type"`
	// Command response fields
	ID    string `json:"id,omitempty"`
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
	// Payload fields, shared by responses and events
	Tab     json.RawMessage `json:"tab,omitempty"`
	Tabs    json.RawMessage `json:"tabs,omitempty"`
	Group   json.RawMessage `json:"group,omitempty"`
	Groups  json.RawMessage `json:"groups,omitempty"`
	TabID   int             `json:"tabId,omitempty"`
	GroupID int             `json:"groupId,omitempty"`
}

// OutgoingMsg is a command to the extension.
type OutgoingMsg struct {
	ID        string  `json:"id"`
	Action    string  `json:"action"`
	TabID     int     `json:"tabId,omitempty"`
	TabIDs    []int   `json:"tabIds,omitempty"`
	GroupID   int     `json:"groupId,omitempty"`
	URL       string  `json:"url,omitempty"`
	Active    *bool   `json:"active,omitempty"`
	Title     *string `json:"title,omitempty"`
	Color     *string `json:"color,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

// Server manages the WebSocket connection to the extension. It implements
// host.Host and host.GroupHost by sending commands and waiting for the
// matching response.
type Server struct {
	port    int
	timeout time.Duration
	events  chan host.Event
	seq     atomic.Int64

	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	waiting map[string]chan IncomingMsg
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		timeout: DefaultTimeout,
		events:  make(chan host.Event, 256),
		waiting: make(map[string]chan IncomingMsg),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Events returns the stream of host events reported by the extension.
func (s *Server) Events() <-chan host.Event {
	return s.events
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// WaitConnected blocks until an extension connects or ctx ends.
func (s *Server) WaitConnected(ctx context.Context) error {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for !s.Connected() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Send sends a command to the connected extension without waiting for a
// response.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNotLive
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// call sends msg and waits for the response with the same id.
func (s *Server) call(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msg.ID = "cmd-" + strconv.FormatInt(s.seq.Add(1), 10)
	reply := make(chan IncomingMsg, 1)
	s.mu.Lock()
	s.waiting[msg.ID] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiting, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, err)
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ErrNotLive)
		}
		if resp.OK != nil && !*resp.OK {
			return resp, fmt.Errorf("%s: %w", msg.Action, responseError(resp.Error))
		}
		return resp, nil
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

func (s *Server) deliver(msg IncomingMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reply, ok := s.waiting[msg.ID]
	if !ok {
		applog.Warn("ws.response.orphan", nil, "id", msg.ID)
		return
	}
	select {
	case reply <- msg:
	default:
	}
}

// failWaiting unblocks every outstanding call after a disconnect.
func (s *Server) failWaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reply := range s.waiting {
		close(reply)
		delete(s.waiting, id)
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(4 << 20)

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			current := s.conn == conn
			if current {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			if current {
				s.failWaiting()
			}
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			if msg.Type == "response" {
				s.deliver(msg)
				continue
			}
			ev, err := ParseEvent(msg)
			if err != nil {
				applog.Error("ws.event", err, "type", msg.Type)
				continue
			}
			applog.Info("ws.recv", "type", msg.Type)
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	})
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

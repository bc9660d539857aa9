package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vgraph/pkg/dispose"
	"github.com/vango-dev/vgraph/pkg/event"
	"github.com/vango-dev/vgraph/pkg/graph"
)

// Message is one graph event as sent on /events.
type Message struct {
	Type    string `json:"type"`
	Node    string `json:"node"`
	Context uint64 `json:"context,omitempty"`
	Time    uint64 `json:"time"`
	Old     any    `json:"old,omitempty"`
	New     any    `json:"new,omitempty"`
}

func messageFor(e event.Event) (Message, bool) {
	switch e := e.(type) {
	case graph.ReadyEvent:
		return Message{
			Type:    string(graph.EventReady),
			Node:    e.ID.Name(),
			Context: contextID(e.Context),
			Time:    e.Time.Uint64(),
		}, true
	case graph.ChangeEvent:
		return Message{
			Type:    string(graph.EventChange),
			Node:    e.ID.Name(),
			Context: contextID(e.Context),
			Time:    e.Time.Uint64(),
			Old:     e.Old,
			New:     e.New,
		}, true
	}
	return Message{}, false
}

func contextID(c graph.Context) uint64 {
	if c == nil {
		return 0
	}
	return c.ID()
}

// stream forwards bus events to one WebSocket connection. Events are
// dispatched synchronously by the graph, so they are queued and written from
// a separate goroutine; a full queue drops events.
type stream struct {
	conn    *websocket.Conn
	queue   chan Message
	filter  map[string]bool
	timeout time.Duration

	subs      []dispose.Disposable
	done      chan struct{}
	closeOnce sync.Once
}

func (st *stream) accept(name string) bool {
	return len(st.filter) == 0 || st.filter[name]
}

func (st *stream) close() {
	st.closeOnce.Do(func() {
		for _, d := range st.subs {
			d.Dispose()
		}
		close(st.done)
		st.conn.Close()
	})
}

// handleEvents upgrades to a WebSocket and streams ready and change events.
// Repeated ?node= parameters restrict the stream to those nodes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	st := &stream{
		conn:    conn,
		queue:   make(chan Message, s.config.MaxEventQueue),
		filter:  make(map[string]bool),
		timeout: s.config.WriteTimeout,
		done:    make(chan struct{}),
	}
	for _, name := range r.URL.Query()["node"] {
		st.filter[name] = true
	}

	bus := s.graph.Bus()
	handler := func(e event.Event) {
		msg, ok := messageFor(e)
		if !ok || !st.accept(msg.Node) {
			return
		}
		select {
		case <-st.done:
		case st.queue <- msg:
		default:
			s.logger.Warn("event stream full, dropping event", "node", msg.Node, "type", msg.Type)
		}
	}
	st.subs = append(st.subs,
		bus.On(graph.EventReady, handler, st, false),
		bus.On(graph.EventChange, handler, st, false),
	)

	s.mu.Lock()
	s.streams[st] = struct{}{}
	s.mu.Unlock()

	// The hello message tells clients the subscription is live.
	hello := Message{Type: "hello", Time: s.graph.Timestamp().Uint64()}
	if err := s.write(st, hello); err != nil {
		s.release(st)
		return
	}

	go s.readLoop(st)
	s.writeLoop(st)
}

func (s *Server) writeLoop(st *stream) {
	defer s.release(st)
	for {
		select {
		case <-st.done:
			return
		case msg := <-st.queue:
			if err := s.write(st, msg); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages and notices when the peer goes away.
func (s *Server) readLoop(st *stream) {
	defer st.close()
	for {
		if _, _, err := st.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) write(st *stream, msg Message) error {
	st.conn.SetWriteDeadline(time.Now().Add(st.timeout))
	return st.conn.WriteJSON(msg)
}

func (s *Server) release(st *stream) {
	st.close()
	s.mu.Lock()
	delete(s.streams, st)
	s.mu.Unlock()
}

package streamserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/util/callcontext"
	"github.com/xiaonanln/streamgraph/util/metrics"
)

const (
	wsWriteWait      = 5 * time.Second
	wsMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// WSMessage is the WebSocket wire format in both directions.
//
// Clients send {"type":"connect"}, {"type":"disconnect"} or
// {"type":"range","value":0..100}. The server sends {"type":"state"} with
// every newer render state, {"type":"ack"} with the version produced by an
// event, and {"type":"error"} when an event fails.
type WSMessage struct {
	Type    string                `json:"type"`
	Value   *float64              `json:"value,omitempty"`
	Version uint64                `json:"version,omitempty"`
	State   *explorer.RenderState `json:"state,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// handleWebSocket handles GET /ws
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	clientID := "ws-" + uuid.NewString()
	states := make(chan *explorer.RenderState, 1)
	unsubscribe, err := s.ex.Subscribe(clientID, explorer.ObserverFunc(func(st *explorer.RenderState) {
		offerLatest(states, st)
	}))
	if err != nil {
		s.writeWS(conn, WSMessage{Type: "error", Error: err.Error()})
		return
	}
	defer unsubscribe()

	metrics.RecordSubscriberConnected(TransportWebSocket)
	log.Infof("WebSocket client connected: %s", clientID)
	defer func() {
		metrics.RecordSubscriberDisconnected(TransportWebSocket)
		log.Infof("WebSocket client disconnected: %s", clientID)
	}()

	replies := make(chan WSMessage, 16)
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Closing the connection unblocks the reader below.
		defer conn.Close()
		s.wsWriteLoop(conn, clientID, states, replies, stop)
	}()
	defer func() {
		close(stop)
		<-writerDone
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * s.heartbeat))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * s.heartbeat))
	})

	ctx := callcontext.WithClientID(r.Context(), TransportWebSocket+"/"+clientID)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("WebSocket client %s read error: %v", clientID, err)
			}
			return
		}

		var msg WSMessage
		reply := WSMessage{Type: "ack"}
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = WSMessage{Type: "error", Error: fmt.Sprintf("invalid message: %v", err)}
		} else if version, err := s.runWSEvent(ctx, msg); err != nil {
			reply = WSMessage{Type: "error", Error: err.Error()}
		} else {
			reply.Version = version
		}

		select {
		case replies <- reply:
		case <-writerDone:
			return
		}
	}
}

func (s *Server) runWSEvent(ctx context.Context, msg WSMessage) (uint64, error) {
	ctx, cancel := callcontext.WithDefaultTimeout(ctx, eventTimeout)
	defer cancel()
	switch msg.Type {
	case explorer.EventConnect:
		return s.ex.Connect(ctx, TransportWebSocket)
	case explorer.EventDisconnect:
		return s.ex.Disconnect(ctx, TransportWebSocket)
	case explorer.EventRange:
		if msg.Value == nil {
			return 0, fmt.Errorf("%w: missing value", explorer.ErrInvalidPercent)
		}
		percent, err := ParsePercent(fmt.Sprint(*msg.Value))
		if err != nil {
			return 0, err
		}
		return s.ex.SetRange(ctx, TransportWebSocket, percent)
	}
	return 0, fmt.Errorf("unknown message type %q", msg.Type)
}

// wsWriteLoop owns every write to conn.
func (s *Server) wsWriteLoop(conn *websocket.Conn, clientID string, states <-chan *explorer.RenderState, replies <-chan WSMessage, stop <-chan struct{}) {
	initial := s.ex.State()
	if err := s.writeWS(conn, WSMessage{Type: "state", State: initial}); err != nil {
		log.Warnf("Failed to send initial state to WebSocket client %s: %v", clientID, err)
		return
	}
	sent := initial.Version

	pingTicker := time.NewTicker(s.heartbeat)
	defer pingTicker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.shutdownChan:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				log.Warnf("Failed to ping WebSocket client %s: %v", clientID, err)
				return
			}
		case reply := <-replies:
			if err := s.writeWS(conn, reply); err != nil {
				log.Warnf("Failed to reply to WebSocket client %s: %v", clientID, err)
				return
			}
		case st := <-states:
			if st.Version <= sent {
				continue
			}
			sent = st.Version
			if err := s.writeWS(conn, WSMessage{Type: "state", State: st}); err != nil {
				log.Warnf("Failed to send state to WebSocket client %s: %v", clientID, err)
				return
			}
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

package streamserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/util/testutil"
)

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial %s failed: %v", url, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message %q: %v", data, err)
	}
	return msg
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(WSMessage) bool) WSMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		if msg := readWS(t, conn); match(msg) {
			return msg
		}
	}
	t.Fatal("expected message never arrived")
	return WSMessage{}
}

func sendWS(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
}

func TestWebSocket_InitialState(t *testing.T) {
	s, ex := newTestServer(t, explorer.Config{})
	conn := dialWS(t, s)

	msg := readWS(t, conn)
	if msg.Type != "state" || msg.State == nil {
		t.Fatalf("first message = %+v, want a state", msg)
	}
	if msg.State.Version != ex.State().Version {
		t.Errorf("initial version = %d, want %d", msg.State.Version, ex.State().Version)
	}
}

func TestWebSocket_Events(t *testing.T) {
	s, ex := newTestServer(t, explorer.Config{})
	conn := dialWS(t, s)
	readWS(t, conn)

	sendWS(t, conn, `{"type":"connect"}`)
	// The ack and the pushed state may arrive in either order.
	var ack uint64
	var pushed uint64
	readUntil(t, conn, func(m WSMessage) bool {
		switch m.Type {
		case "ack":
			ack = m.Version
		case "state":
			pushed = m.State.Version
		default:
			t.Fatalf("connect reply = %+v", m)
		}
		return ack != 0 && pushed >= ack
	})
	if v := ex.State().Version; ack != v {
		t.Errorf("ack version = %d, want the connect's version %d", ack, v)
	}
	if n := sockets(t, ex); n != 1 {
		t.Errorf("sockets has %d entries, want 1", n)
	}

	sendWS(t, conn, `{"type":"range","value":25}`)
	if reply := readUntil(t, conn, func(m WSMessage) bool { return m.Type != "state" }); reply.Type != "ack" {
		t.Errorf("range reply = %+v", reply)
	}

	sendWS(t, conn, `{"type":"disconnect"}`)
	if reply := readUntil(t, conn, func(m WSMessage) bool { return m.Type != "state" }); reply.Type != "ack" {
		t.Errorf("disconnect reply = %+v", reply)
	}
	if !ex.State().DisconnectDisabled {
		t.Error("disconnect should be disabled after closing the only connection")
	}
}

func TestWebSocket_Errors(t *testing.T) {
	s, _ := newTestServer(t, explorer.Config{})
	conn := dialWS(t, s)
	readWS(t, conn)

	for _, raw := range []string{
		`not json`,
		`{"type":"explode"}`,
		`{"type":"range"}`,
		`{"type":"range","value":120}`,
	} {
		sendWS(t, conn, raw)
		reply := readUntil(t, conn, func(m WSMessage) bool { return m.Type != "state" })
		if reply.Type != "error" || reply.Error == "" {
			t.Errorf("reply to %s = %+v, want an error", raw, reply)
		}
	}
}

func TestWebSocket_ClientCloseUnsubscribes(t *testing.T) {
	s, ex := newTestServer(t, explorer.Config{})
	conn := dialWS(t, s)
	readWS(t, conn)

	if n := ex.Observers(); n != 1 {
		t.Fatalf("observers = %d, want 1", n)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	testutil.WaitFor(t, 2*time.Second, "WebSocket subscriber removed", func() bool {
		return ex.Observers() == 0
	})
}

func TestWebSocket_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, explorer.Config{})
	conn := dialWS(t, s)
	readWS(t, conn)

	s.Shutdown()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage after shutdown = %v, want a going-away close", err)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, explorer.Config{})
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("plain GET /ws status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

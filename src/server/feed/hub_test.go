package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testUpdate struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for h.ClientCount() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.ClientCount() != n {
		t.Fatalf("ClientCount() = %d; want %d", h.ClientCount(), n)
	}
}

func TestHubWelcomeAndBroadcast(t *testing.T) {
	hub := NewHub("1.2.3", func() any { return testUpdate{Type: "matrix-update", Value: 1} })
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dialHub(t, srv)

	var welcome WelcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("ReadJSON welcome failed: %v", err)
	}
	if welcome.Type != "welcome" || welcome.Version != "1.2.3" || welcome.ClientID == "" {
		t.Errorf("unexpected welcome: %+v", welcome)
	}

	var initial testUpdate
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("ReadJSON initial failed: %v", err)
	}
	if initial.Value != 1 {
		t.Errorf("initial value = %d; want 1", initial.Value)
	}

	waitClients(t, hub, 1)
	hub.Broadcast(testUpdate{Type: "matrix-update", Value: 2})

	var update testUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("ReadJSON update failed: %v", err)
	}
	if update.Value != 2 {
		t.Errorf("update value = %d; want 2", update.Value)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub("", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	var welcome WelcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("ReadJSON welcome failed: %v", err)
	}
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHubClose(t *testing.T) {
	hub := NewHub("", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv)
	var welcome WelcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("ReadJSON welcome failed: %v", err)
	}
	waitClients(t, hub, 1)

	hub.Close()
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", hub.ClientCount())
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

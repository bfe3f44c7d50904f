package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_NotifyFiltersByProposal(t *testing.T) {
	hub := NewHub([]string{"*"}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	first := dialHub(t, srv, "proposal_id=prop-1")
	second := dialHub(t, srv, "proposal_id=prop-2")
	everything := dialHub(t, srv, "")
	waitForClients(t, hub, 3)

	n := domain.NewNotification(domain.NotificationSuccess, domain.EventGenerated, "已生成內容")
	n.ProposalID = "prop-1"
	if err := hub.Notify(context.Background(), n); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"subscriber": first, "unfiltered": everything} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s: failed to read notification: %v", name, err)
		}
		var got domain.Notification
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s: invalid notification: %v", name, err)
		}
		if got.Event != domain.EventGenerated || got.ProposalID != "prop-1" {
			t.Errorf("%s: unexpected notification %+v", name, got)
		}
	}

	_ = second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Error("expected no notification for another proposal")
	}
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub([]string{"https://studio.example.com"}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	header.Set("Origin", "https://studio.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("expected allowed origin to connect: %v", err)
	}
	conn.Close()
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	waitForClients(t, hub, 1)

	hub.Close()
	if hub.ClientCount() != 0 {
		t.Errorf("expected no clients after close, got %d", hub.ClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

func TestServer_WebsocketRoute(t *testing.T) {
	hub := NewHub([]string{"*"}, nil)
	server := NewServer(DefaultConfig(), Services{}, hub, nil)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial through middleware: %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)
}

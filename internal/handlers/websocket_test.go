package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harborlight/inquiro/internal/common"
	"github.com/harborlight/inquiro/internal/models"
	"github.com/ternarybob/arbor"
)

func TestWebSocketHandler_BroadcastsTerminalJobEvents(t *testing.T) {
	handler := NewWebSocketHandler(&common.WebSocketConfig{ThrottleInterval: "1s"}, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// Registration is asynchronous with the upgrade response
	deadline := time.Now().Add(2 * time.Second)
	for handler.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if handler.ClientCount() != 1 {
		t.Fatal("Expected client registered")
	}

	job := models.NewBatchJob("job_ws", "eng_ws")
	job.MarkActive()
	job.MarkSucceeded()
	job.ChunksIndexed = 7
	handler.NotifyJob(job)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event JobEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if event.JobID != "job_ws" || event.Status != "succeeded" || event.ChunksIndexed != 7 {
		t.Errorf("Unexpected event %+v", event)
	}
}

func TestWebSocketHandler_ThrottlesProgressEvents(t *testing.T) {
	handler := NewWebSocketHandler(&common.WebSocketConfig{ThrottleInterval: "1h"}, arbor.NewLogger())

	active := models.NewBatchJob("job_p", "eng_p")
	active.MarkActive()

	// First progress event consumes the limiter token; later ones are dropped
	// without clients this only exercises the throttle path
	handler.NotifyJob(active)
	handler.NotifyJob(active)

	terminal := models.NewBatchJob("job_t", "eng_t")
	terminal.MarkActive()
	terminal.MarkFailed("boom")
	// Terminal events bypass the throttle; no panic with zero clients
	handler.NotifyJob(terminal)
}

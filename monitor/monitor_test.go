package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMonitor_Handler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMonitorWithRegistry("roomsync", registry, registry)

	m.IncOnlineConnections()
	m.IncOnlineConnections()
	m.DecOnlineConnections()
	m.SetActiveRooms(3)
	m.IncMessagesReceived("player_action")
	m.IncErrors("NotYourTurn")
	m.ObserveBroadcast(4)
	m.ObserveActionLatency(2 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"roomsync_online_connections 1",
		"roomsync_active_rooms 3",
		`roomsync_messages_received_total{type="player_action"} 1`,
		`roomsync_errors_total{kind="NotYourTurn"} 1`,
		"roomsync_broadcasts_total 1",
		"roomsync_broadcast_deliveries_total 4",
		"roomsync_action_latency_seconds_count 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMonitor_SeparateRegistries(t *testing.T) {
	// Two monitors must not collide, and expvar is only published once.
	NewMonitor("a")
	NewMonitor("a")

	rec := httptest.NewRecorder()
	NewMonitor("b").VarsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/vars", nil))
	if !strings.Contains(rec.Body.String(), `"uptime"`) {
		t.Error("expvar output should include uptime")
	}
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/engine"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/network"
	"github.com/wfunc/roomsync/persistence"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.RPCAddress = ""
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Room.MinPlayers = 2
	cfg.Room.MaxPlayers = 4
	return cfg
}

func newTestServer(t *testing.T) (*GameServer, *httptest.Server) {
	t.Helper()
	gs := NewGameServer(testConfig(), engine.NewRace(), persistence.NopRecorder{}, monitor.NewMonitor("test"))
	ts := httptest.NewServer(gs.Handler())
	t.Cleanup(func() {
		ts.Close()
		gs.timers.Stop()
	})
	return gs, ts
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "ws://") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	expect(t, ws, network.MsgTypeWelcome)
	return ws
}

func send(t *testing.T, ws *websocket.Conn, env *network.Envelope) {
	t.Helper()
	data, err := network.Encode(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

// next returns the next message that is not a heartbeat.
func next(t *testing.T, ws *websocket.Conn) *network.Envelope {
	t.Helper()
	for {
		ws.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		env, err := network.Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if env.Type != network.MsgTypeHeartbeat {
			return env
		}
	}
}

func expect(t *testing.T, ws *websocket.Conn, msgType network.MsgType) *network.Envelope {
	t.Helper()
	env := next(t, ws)
	if env.Type != msgType {
		t.Fatalf("Expected %s, got %s (%+v)", msgType, env.Type, env.Error)
	}
	return env
}

func expectSeq(t *testing.T, ws *websocket.Conn, msgType network.MsgType, seq uint64) *network.Envelope {
	t.Helper()
	env := expect(t, ws, msgType)
	if env.Seq != seq {
		t.Fatalf("Expected %s with seq %d, got %d", msgType, seq, env.Seq)
	}
	return env
}

func expectError(t *testing.T, ws *websocket.Conn, kind network.ErrorKind) *network.Envelope {
	t.Helper()
	env := expect(t, ws, network.MsgTypeError)
	if env.Error == nil || env.Error.Kind != kind {
		t.Fatalf("Expected %s, got %+v", kind, env.Error)
	}
	return env
}

func TestGameServer_GameFlow(t *testing.T) {
	gs, ts := newTestServer(t)

	alice := dial(t, ts.URL)
	send(t, alice, &network.Envelope{Type: network.MsgTypeCreateRoom, Name: "alice", RoomName: "Friday race"})
	joined := expectSeq(t, alice, network.MsgTypeRoomJoined, 0)
	code, aliceID := joined.Code, joined.PlayerID
	if code == "" || aliceID == "" || joined.Token == "" {
		t.Fatalf("room_joined is missing fields: %+v", joined)
	}
	if snap := expectSeq(t, alice, network.MsgTypeStateSnapshot, 0); snap.Room.Name != "Friday race" {
		t.Errorf("Expected the room name in the snapshot, got %q", snap.Room.Name)
	}
	expectSeq(t, alice, network.MsgTypePresence, 1)

	bob := dial(t, ts.URL)
	send(t, bob, &network.Envelope{Type: network.MsgTypeJoinRoom, Code: strings.ToLower(code), Name: "bob"})
	bobID := expectSeq(t, bob, network.MsgTypeRoomJoined, 1).PlayerID
	expectSeq(t, bob, network.MsgTypeStateSnapshot, 1)
	expectSeq(t, bob, network.MsgTypePresence, 2)
	expectSeq(t, alice, network.MsgTypePresence, 2)

	// Only the host may start.
	send(t, bob, &network.Envelope{Type: network.MsgTypeStartGame})
	expectError(t, bob, network.KindNotHost)

	send(t, alice, &network.Envelope{Type: network.MsgTypeStartGame})
	for _, ws := range []*websocket.Conn{alice, bob} {
		snap := expectSeq(t, ws, network.MsgTypeStateSnapshot, 3)
		if snap.Room.Status != "in_progress" || snap.Room.Turn != aliceID {
			t.Fatalf("Unexpected room after start: %+v", snap.Room)
		}
	}

	send(t, bob, &network.Envelope{Type: network.MsgTypePlayerAction, Payload: json.RawMessage(`{"type":"move","steps":2}`)})
	if env := expectError(t, bob, network.KindNotYourTurn); env.Seq != 3 {
		t.Errorf("Error should carry the current seq 3, got %d", env.Seq)
	}

	send(t, alice, &network.Envelope{Type: network.MsgTypePlayerAction, Payload: json.RawMessage(`{"type":"move","steps":3}`)})
	for _, ws := range []*websocket.Conn{alice, bob} {
		delta := expectSeq(t, ws, network.MsgTypeStateDelta, 4)
		if delta.PlayerID != aliceID || delta.Room.Turn != bobID {
			t.Fatalf("Unexpected delta: player=%s turn=%s", delta.PlayerID, delta.Room.Turn)
		}
	}

	send(t, bob, &network.Envelope{Type: network.MsgTypeResync})
	snap := expectSeq(t, bob, network.MsgTypeStateSnapshot, 4)
	var st struct {
		Positions map[string]int `json:"positions"`
	}
	if err := json.Unmarshal(snap.State, &st); err != nil {
		t.Fatalf("Snapshot state does not decode: %v", err)
	}
	if st.Positions[aliceID] != 3 || st.Positions[bobID] != 0 {
		t.Errorf("Unexpected positions %v", st.Positions)
	}

	// Alice never saw bob's error: her next message is the chat line.
	send(t, alice, &network.Envelope{Type: network.MsgTypeChat, Text: "  gg  "})
	if chat := expectSeq(t, alice, network.MsgTypeChat, 5); chat.Text != "gg" {
		t.Errorf("Expected trimmed chat text, got %q", chat.Text)
	}
	expectSeq(t, bob, network.MsgTypeChat, 5)

	// Bob holds the turn, so losing him pauses the game.
	bob.Close()
	presence := expectSeq(t, alice, network.MsgTypePresence, 6)
	if presence.Room.Status != "paused" {
		t.Errorf("Expected paused room, got %s", presence.Room.Status)
	}

	r, ok := gs.Rooms().GetRoom(code)
	if !ok {
		t.Fatal("Room should survive a disconnect")
	}
	if got := r.Summary().Connected; got != 1 {
		t.Errorf("Expected 1 connected player, got %d", got)
	}
}

func TestGameServer_RequestErrors(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts.URL)

	send(t, ws, &network.Envelope{Type: network.MsgTypePlayerAction, Payload: json.RawMessage(`{}`)})
	expectError(t, ws, network.KindNotInRoom)

	send(t, ws, &network.Envelope{Type: "dance"})
	expectError(t, ws, network.KindBadRequest)

	send(t, ws, &network.Envelope{Type: network.MsgTypeJoinRoom, Code: "ZZZZ", Name: "carol"})
	expectError(t, ws, network.KindRoomNotFound)

	send(t, ws, &network.Envelope{Type: network.MsgTypeCreateRoom})
	expectError(t, ws, network.KindBadRequest)

	send(t, ws, &network.Envelope{Type: network.MsgTypeCreateRoom, Name: "carol"})
	expect(t, ws, network.MsgTypeRoomJoined)
	expect(t, ws, network.MsgTypeStateSnapshot)
	expect(t, ws, network.MsgTypePresence)

	send(t, ws, &network.Envelope{Type: network.MsgTypeCreateRoom, Name: "carol"})
	expectError(t, ws, network.KindAlreadyInRoom)

	send(t, ws, &network.Envelope{Type: "dance"})
	expectError(t, ws, network.KindBadRequest)

	// Leaving twice is harmless and the connection can create again.
	send(t, ws, &network.Envelope{Type: network.MsgTypeLeaveRoom})
	send(t, ws, &network.Envelope{Type: network.MsgTypeLeaveRoom})
	send(t, ws, &network.Envelope{Type: network.MsgTypeRoomList})
	if list := expect(t, ws, network.MsgTypeRoomList); len(list.Rooms) != 0 {
		t.Errorf("Empty room should be gone after its last player left, got %+v", list.Rooms)
	}
}

func TestGameServer_HTTP(t *testing.T) {
	gs, ts := newTestServer(t)

	r, err := gs.Rooms().CreateRoom("")
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Rooms []struct {
			Code   string `json:"code"`
			Status string `json:"status"`
		} `json:"rooms"`
	}
	err = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].Code != r.Code || list.Rooms[0].Status != "waiting" {
		t.Errorf("Unexpected room list %+v", list.Rooms)
	}

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/api/rooms/" + r.Code, http.StatusOK, r.Code},
		{"/api/rooms/" + strings.ToLower(r.Code), http.StatusOK, r.Code},
		{"/api/rooms/NOPE", http.StatusNotFound, "room not found"},
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/metrics", http.StatusOK, "test_active_rooms"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("Expected body to contain %q, got %s", tt.body, body)
			}
		})
	}
}

func TestGameServer_ShutdownNotice(t *testing.T) {
	gs := NewGameServer(testConfig(), engine.NewRace(), persistence.NopRecorder{}, monitor.NewMonitor("test"))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	ws := dial(t, ln.Addr().String())
	send(t, ws, &network.Envelope{Type: network.MsgTypeCreateRoom, Name: "alice"})
	expect(t, ws, network.MsgTypeRoomJoined)
	expect(t, ws, network.MsgTypeStateSnapshot)
	expect(t, ws, network.MsgTypePresence)

	cancel()
	expectError(t, ws, network.KindServerShutdown)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
	if n := gs.Rooms().Len(); n != 0 {
		t.Errorf("Expected every room closed, %d left", n)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "http://evil.example", true},
		{[]string{"game.example"}, "https://game.example", true},
		{[]string{"https://game.example"}, "https://game.example", true},
		{[]string{"game.example"}, "https://evil.example", false},
		{[]string{"game.example"}, "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(tt.allowed)(req); got != tt.want {
			t.Errorf("checkOrigin(%v)(%q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
		}
	}
}

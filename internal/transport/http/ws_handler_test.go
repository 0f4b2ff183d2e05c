package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/auth"
	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/metrics"
	"github.com/vovakirdan/roomsync-server/internal/proto"
)

// wireOutbound mirrors proto.Outbound with undecoded data.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Room  string          `json:"room"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	hub := core.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	logger := zerolog.Nop()
	server := NewServer(hub, &cfg, &logger, metrics.New())

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server, query string) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws?" + query
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	var payload json.RawMessage
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s: %v", typ, err)
		}
		payload = raw
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readNext returns the next outbound frame.
func readNext(ctx context.Context, t *testing.T, conn *websocket.Conn) wireOutbound {
	t.Helper()

	var out wireOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readEvent skips frames until the named event arrives.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) wireOutbound {
	t.Helper()

	for {
		out := readNext(ctx, t, conn)
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

func getJSON(t *testing.T, url, token string, v any) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketRequiresRoom(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(ts, "name=alice"), nil)
	if err == nil {
		t.Fatal("expected handshake without room to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}

	var rooms []RoomResponse
	if status := getJSON(t, ts.URL+"/api/rooms", "", &rooms); status != http.StatusOK || len(rooms) != 0 {
		t.Fatalf("rejected handshake touched the registry: status=%d rooms=%+v", status, rooms)
	}
}

func TestWebSocketJoinRelayAndLeave(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dial(ctx, t, wsURL(ts, "room=r1"))
	send(ctx, t, alice, proto.InboundTypeJoinRoom, proto.JoinData{DisplayName: "Alice"})
	initial := readEvent(ctx, t, alice, proto.EventInitialState)
	if initial.Room != "r1" || !strings.Contains(string(initial.Data), `"state":{}`) {
		t.Fatalf("unexpected initial state for alice: %s", initial.Data)
	}

	bob := dial(ctx, t, wsURL(ts, "room=r1"))
	send(ctx, t, bob, proto.InboundTypeJoinRoom, proto.JoinData{Room: "r1", DisplayName: "Bob"})

	joined := readEvent(ctx, t, alice, proto.EventParticipantJoined)
	var bobInfo proto.ParticipantInfo
	if err := json.Unmarshal(joined.Data, &bobInfo); err != nil {
		t.Fatalf("decode participant-joined: %v", err)
	}
	if bobInfo.DisplayName != "Bob" || bobInfo.ID == "" {
		t.Fatalf("unexpected participant-joined: %+v", bobInfo)
	}
	readEvent(ctx, t, bob, proto.EventInitialState)

	send(ctx, t, alice, proto.InboundTypeStateUpdate, proto.StateUpdateData{Patch: json.RawMessage(`{"patch":"X"}`)})
	update := readEvent(ctx, t, bob, proto.EventStateUpdate)
	var relayed proto.EventStateUpdateData
	if err := json.Unmarshal(update.Data, &relayed); err != nil {
		t.Fatalf("decode state-update: %v", err)
	}
	if string(relayed.Patch) != `{"patch":"X"}` {
		t.Fatalf("unexpected relayed patch: %s", relayed.Patch)
	}

	// Alice's next frame must be her own snapshot, not an echo of her patch.
	send(ctx, t, alice, proto.InboundTypeRequestState, nil)
	next := readNext(ctx, t, alice)
	if next.Event != proto.EventInitialState || !strings.Contains(string(next.Data), `"patch":"X"`) {
		t.Fatalf("expected refreshed snapshot, got %s %s", next.Event, next.Data)
	}

	var detail RoomDetailResponse
	if status := getJSON(t, ts.URL+"/api/rooms/r1", "", &detail); status != http.StatusOK {
		t.Fatalf("get room: status %d", status)
	}
	if detail.Participants != 2 {
		t.Fatalf("expected 2 participants, got %+v", detail)
	}
	var aliceID string
	for _, u := range detail.Users {
		if u.DisplayName == "Alice" {
			aliceID = u.ID
		}
	}

	alice.Close(websocket.StatusNormalClosure, "bye")
	left := readEvent(ctx, t, bob, proto.EventParticipantLeft)
	var leftData proto.EventParticipantLeftData
	if err := json.Unmarshal(left.Data, &leftData); err != nil {
		t.Fatalf("decode participant-left: %v", err)
	}
	if aliceID == "" || leftData.ID != aliceID {
		t.Fatalf("participant-left id %q, want %q", leftData.ID, aliceID)
	}
	if status := getJSON(t, ts.URL+"/api/rooms/r1", "", nil); status != http.StatusOK {
		t.Fatalf("room should survive while bob remains, status %d", status)
	}

	bob.Close(websocket.StatusNormalClosure, "bye")
	deadline := time.Now().Add(2 * time.Second)
	for getJSON(t, ts.URL+"/api/rooms/r1", "", nil) != http.StatusNotFound {
		if time.Now().After(deadline) {
			t.Fatal("room r1 still present after everyone left")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWebSocketBadFramesKeepConnection(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "room=r1"))

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out := readNext(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", out)
	}

	send(ctx, t, conn, "draw", nil)
	if out := readNext(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeInvalidMessage {
		t.Fatalf("expected invalid_message, got %+v", out)
	}

	send(ctx, t, conn, proto.InboundTypeStateUpdate, proto.StateUpdateData{Patch: json.RawMessage(`{"a":1}`)})
	if out := readNext(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", out)
	}

	send(ctx, t, conn, proto.InboundTypeJoinRoom, nil)
	readEvent(ctx, t, conn, proto.EventInitialState)
}

func TestWebSocketRateLimit(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 2
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, wsURL(ts, "room=quiet"))
	// request-state for a room that does not exist is answered with silence.
	send(ctx, t, conn, proto.InboundTypeRequestState, nil)
	send(ctx, t, conn, proto.InboundTypeRequestState, nil)
	send(ctx, t, conn, proto.InboundTypeRequestState, nil)

	if out := readNext(ctx, t, conn); out.Type != proto.OutboundTypeError || out.Error.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", out)
	}
}

func TestWebSocketHandshakeToken(t *testing.T) {
	const secret = "test-secret"
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.JWTSecret = secret
		cfg.JWTRequired = true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Name: "Carol",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	for _, query := range []string{"room=r1", "room=r1&token=garbage"} {
		_, resp, err := websocket.Dial(ctx, wsURL(ts, query), nil)
		if err == nil {
			t.Fatalf("%s: expected handshake to fail", query)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %+v", query, resp)
		}
	}

	conn := dial(ctx, t, wsURL(ts, "room=r1&token="+token))
	send(ctx, t, conn, proto.InboundTypeJoinRoom, proto.JoinData{ExternalUserID: "spoofed"})
	readEvent(ctx, t, conn, proto.EventInitialState)

	if status := getJSON(t, ts.URL+"/api/rooms/r1", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("api without token: expected 401, got %d", status)
	}
	var detail RoomDetailResponse
	if status := getJSON(t, ts.URL+"/api/rooms/r1", token, &detail); status != http.StatusOK {
		t.Fatalf("api with token: status %d", status)
	}
	if len(detail.Users) != 1 || detail.Users[0].ExternalUserID != "user-42" || detail.Users[0].DisplayName != "Carol" {
		t.Fatalf("unexpected users: %+v", detail.Users)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "roomsync_rooms") {
		t.Fatalf("unexpected metrics response %d: %.200s", resp.StatusCode, body)
	}
}

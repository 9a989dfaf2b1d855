package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialWebSocket(t *testing.T, store chat.TurnStore) *websocket.Conn {
	t.Helper()

	chatSvc := chatservice.NewService(store, stubRelay{result: okResult("pong")})
	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc).RegisterWebSocketRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) inboundFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame inboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWebSocketChatTurn(t *testing.T) {
	store := chat.NewMemoryStore()
	conn := dialWebSocket(t, store)

	if err := conn.WriteJSON(map[string]string{"text": "ping", "session_id": "ws-1"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	frame := readFrame(t, conn)
	if frame.Type != frameTypeChat {
		t.Fatalf("expected chat frame, got %s", frame.Type)
	}

	var body chatBody
	if err := json.Unmarshal(frame.Data, &body); err != nil {
		t.Fatalf("decode chat frame: %v", err)
	}
	if body.SessionID != "ws-1" || body.Reply != "pong" || len(body.History) != 2 {
		t.Fatalf("unexpected chat frame %+v", body)
	}
	if store.Count("ws-1") != 2 {
		t.Fatalf("expected 2 stored turns, got %d", store.Count("ws-1"))
	}
}

func TestWebSocketReportsErrorsAndKeepsConnection(t *testing.T) {
	conn := dialWebSocket(t, chat.NewMemoryStore())

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write err: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != frameTypeError {
		t.Fatalf("expected error frame, got %s", frame.Type)
	}

	if err := conn.WriteJSON(map[string]string{"text": ""}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	frame = readFrame(t, conn)
	var ef errorFrame
	if err := json.Unmarshal(frame.Data, &ef); err != nil {
		t.Fatalf("decode error frame: %v", err)
	}
	if frame.Type != frameTypeError || ef.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected frame %s %+v", frame.Type, ef)
	}

	if err := conn.WriteJSON(map[string]string{"text": "still here"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != frameTypeChat {
		t.Fatalf("expected chat frame after errors, got %s", frame.Type)
	}
}

package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
)

const (
	frameTypeChat  = "chat"
	frameTypeError = "error"

	writeWait = 10 * time.Second
)

// WebSocketHandler 通过WebSocket承载聊天轮次
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type errorFrame struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type outgoingFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 每个入站帧运行一轮对话，按顺序处理
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed: %v", err)
			}
			return
		}

		var req chatService.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			if !h.write(conn, frameTypeError, errorFrame{Status: http.StatusUnprocessableEntity, Message: "invalid request body"}) {
				return
			}
			continue
		}

		resp, err := h.chatSvc.Chat(ctx, req)
		if err != nil {
			if errors.Is(err, chatService.ErrStore) {
				log.Printf("[ws] chat turn failed: %v", err)
			}
			if !h.write(conn, frameTypeError, errorFrame{Status: statusFor(err), Message: err.Error()}) {
				return
			}
			continue
		}

		if !h.write(conn, frameTypeChat, resp) {
			return
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, frameType string, data interface{}) bool {
	frame := outgoingFrame{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[ws] write failed: %v", err)
		return false
	}
	return true
}

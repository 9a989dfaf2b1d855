package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	"github.com/zhouzirui/z-chat/backend/internal/service/ai"
)

const (
	// ChatHistoryLimit caps the history returned with a chat reply.
	ChatHistoryLimit = 50
	// HistoryLimit caps the history endpoint.
	HistoryLimit = 200
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrSessionIDMissing = fmt.Errorf("%w: session_id is required", ErrValidation)
	ErrTextLength       = fmt.Errorf("%w: text must be between 1 and %d characters", ErrValidation, chat.MaxTextLength)
	ErrStore            = errors.New("database error")
)

// Request is one inbound chat submission.
type Request struct {
	Text      string  `json:"text"`
	SessionID *string `json:"session_id"`
	Username  *string `json:"username"`
}

// Validate checks the request before anything is written.
func (r Request) Validate() error {
	if !chat.ValidText(r.Text) {
		return ErrTextLength
	}
	return nil
}

// Response carries the relayed reply and the bounded session history.
type Response struct {
	SessionID string      `json:"session_id"`
	Reply     string      `json:"reply"`
	History   []chat.Turn `json:"history"`
	// Outcome is kept out of the payload; callers use it to tell a real
	// answer from the fallback text.
	Outcome ai.Outcome `json:"-"`
}

// Service runs chat turns against a turn store and a relay.
type Service struct {
	store chat.TurnStore
	relay ai.Relay
}

// NewService wires the process-scoped store and relay.
func NewService(store chat.TurnStore, relay ai.Relay) *Service {
	return &Service{store: store, relay: relay}
}

// Chat persists the user turn, relays it, persists the reply and returns the
// latest history. The two inserts are independent: a failure after the first
// leaves the user turn without a reply.
//
// Caller cancellation is not propagated; the relay timeout is the only bound,
// so a client hanging up mid-turn still gets both turns recorded.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	ctx = context.WithoutCancel(ctx)

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	username := ""
	if req.Username != nil {
		username = *req.Username
	}

	if _, err := s.store.InsertTurn(ctx, chat.UserTurn(sessionID, username, req.Text)); err != nil {
		return Response{}, storeError(err)
	}

	result := s.relay.Reply(ctx, req.Text)
	if result.Degraded() {
		log.Printf("[chat] relay degraded for session=%s: %v", sessionID, result.Err)
	}

	if _, err := s.store.InsertTurn(ctx, chat.AssistantTurn(sessionID, result.Reply)); err != nil {
		return Response{}, storeError(err)
	}

	history, err := s.store.FindBySession(ctx, sessionID, chat.Latest(ChatHistoryLimit))
	if err != nil {
		return Response{}, storeError(err)
	}

	return Response{
		SessionID: sessionID,
		Reply:     result.Reply,
		History:   history,
		Outcome:   result.Outcome,
	}, nil
}

// History returns the first HistoryLimit turns of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDMissing
	}

	turns, err := s.store.FindBySession(context.WithoutCancel(ctx), sessionID, chat.First(HistoryLimit))
	if err != nil {
		return nil, storeError(err)
	}
	return turns, nil
}

// Ask relays text without recording anything.
func (s *Service) Ask(ctx context.Context, text string) ai.Result {
	return s.relay.Reply(context.WithoutCancel(ctx), text)
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", ErrStore, err)
}

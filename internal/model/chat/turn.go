package chat

import (
	"time"
	"unicode/utf8"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// MaxTextLength bounds user-authored text, counted in characters.
	MaxTextLength = 8000
	// DefaultUsername is stored on user turns when the client sends none.
	DefaultUsername = "user"
)

// Turn is a single message within a conversation. Turns sharing a SessionID
// form the conversation; CreatedAt ascending is the only ordering.
type Turn struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Username  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTurn builds the turn recorded for inbound text.
func UserTurn(sessionID, username, text string) Turn {
	if username == "" {
		username = DefaultUsername
	}
	return Turn{
		SessionID: sessionID,
		Role:      RoleUser,
		Text:      text,
		Username:  username,
	}
}

// AssistantTurn builds the turn recorded for a relayed reply.
func AssistantTurn(sessionID, text string) Turn {
	return Turn{
		SessionID: sessionID,
		Role:      RoleAssistant,
		Text:      text,
	}
}

// ValidText reports whether text fits the user turn bounds.
func ValidText(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= 1 && n <= MaxTextLength
}

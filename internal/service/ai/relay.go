package ai

import (
	"context"
	"time"
)

const (
	// FallbackReply is returned whenever the model cannot be reached.
	FallbackReply = "Sorry, the model is not responding right now."
	// EmptyReply is returned when the model answers without any text.
	EmptyReply = "No reply from LLM."

	// DefaultTimeout bounds a single relay call.
	DefaultTimeout = 180 * time.Second
)

// Outcome distinguishes a real model answer from a substituted one.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Result is what a relay call produced. Err is set only when Outcome is
// OutcomeDegraded and is informational; it is never returned to clients.
type Result struct {
	Reply   string
	Outcome Outcome
	Err     error
}

// Degraded reports whether Reply is the fallback text.
func (r Result) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// answered substitutes EmptyReply for blank model content.
func answered(reply string) Result {
	if reply == "" {
		reply = EmptyReply
	}
	return Result{Reply: reply, Outcome: OutcomeOK}
}

func degraded(err error) Result {
	return Result{Reply: FallbackReply, Outcome: OutcomeDegraded, Err: err}
}

// Relay forwards a prompt to a language model. Implementations never fail:
// every error collapses into a degraded Result.
type Relay interface {
	Reply(ctx context.Context, prompt string) Result
}

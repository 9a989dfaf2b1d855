package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-chat/backend/internal/config"
)

// ArkRelay sends each prompt as a lone user message to an eino chat model.
// No conversation history is attached.
type ArkRelay struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
}

// NewArkRelay builds the Ark chat model described by cfg.
func NewArkRelay(ctx context.Context, cfg config.AIConfig, timeout time.Duration) (*ArkRelay, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewModelRelay(chatModel, timeout), nil
}

// NewModelRelay wraps an already constructed chat model.
func NewModelRelay(chatModel model.BaseChatModel, timeout time.Duration) *ArkRelay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ArkRelay{chatModel: chatModel, timeout: timeout}
}

// Reply generates a single response within the relay timeout.
func (r *ArkRelay) Reply(ctx context.Context, prompt string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg, err := r.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		log.Printf("[relay] ark generate failed: %v", err)
		return degraded(fmt.Errorf("failed to generate: %w", err))
	}
	if msg == nil {
		err := errors.New("chat model returned no message")
		log.Printf("[relay] %v", err)
		return degraded(err)
	}

	log.Printf("[relay] ark reply length=%d", len(msg.Content))
	return answered(msg.Content)
}

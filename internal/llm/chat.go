package llm

import (
	"context"
	"fmt"
	"strings"

	"auditgraph/internal/review"
)

// DemoReply is returned instead of calling the model when no API key is set.
const DemoReply = "LLM이 설정되지 않았습니다. .env에 OPENAI_API_KEY를 설정해 주세요. (현재는 데모 모드입니다.)"

const maxChatMessages = 100

// Chatter holds free-form conversations with the chat model.
type Chatter struct {
	client      *Client
	model       string
	temperature float64
}

func NewChatter(client *Client, model string, temperature float64) *Chatter {
	return &Chatter{client: client, model: model, temperature: temperature}
}

// Reply returns the assistant's next message for the conversation. Without
// an API key it answers with DemoReply.
func (c *Chatter) Reply(ctx context.Context, messages []Message) (string, error) {
	if err := checkMessages(messages); err != nil {
		return "", err
	}
	if !c.client.Configured() {
		return DemoReply, nil
	}

	content, err := c.client.Complete(ctx, ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func checkMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", review.ErrInput)
	}
	if len(messages) > maxChatMessages {
		return fmt.Errorf("%w: at most %d messages are allowed", review.ErrInput, maxChatMessages)
	}
	for i, m := range messages {
		switch m.Role {
		case "user", "assistant", "system":
		default:
			return fmt.Errorf("%w: messages[%d]: unknown role %q", review.ErrInput, i, m.Role)
		}
	}
	return nil
}

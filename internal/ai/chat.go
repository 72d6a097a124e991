package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyReply means the model answered without any text.
var ErrEmptyReply = errors.New("model returned an empty reply")

type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatModel continues a role-tagged conversation whose last message is from
// the user.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// HFChat sends the whole conversation to a hosted conversational model.
type HFChat struct {
	client *HFClient
	model  string
}

func NewHFChat(client *HFClient, model string) *HFChat {
	return &HFChat{client: client, model: model}
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

func (c *HFChat) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := c.client.Post(ctx, c.model, map[string]interface{}{"inputs": messages}, ChatTimeout)
	if err != nil {
		metrics.RecordInference("chat", "error")
		return "", err
	}

	text, err := parseGenerated(body)
	if err != nil {
		metrics.RecordInference("chat", "bad_response")
		return "", err
	}
	metrics.RecordInference("chat", "ok")
	return text, nil
}

func parseGenerated(body []byte) (string, error) {
	var one generated
	if err := json.Unmarshal(body, &one); err != nil {
		var many []generated
		if err := json.Unmarshal(body, &many); err != nil {
			return "", fmt.Errorf("failed to decode chat response: %w", err)
		}
		if len(many) > 0 {
			one = many[0]
		}
	}
	text := strings.TrimSpace(one.GeneratedText)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

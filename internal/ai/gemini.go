package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
)

// GeminiChat is the alternative chat provider backed by Google Gemini.
type GeminiChat struct {
	client *genai.Client
	model  string
}

func NewGeminiChat(ctx context.Context, apiKey, model string) (*GeminiChat, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiChat{client: client, model: model}, nil
}

func (g *GeminiChat) Close() error {
	return g.client.Close()
}

// Complete maps system messages onto the system instruction and replays the
// remaining turns as chat history before sending the final user message.
func (g *GeminiChat) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := splitConversation(messages)
	if err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		metrics.RecordInference("chat", "error")
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		metrics.RecordInference("chat", "bad_response")
		return "", ErrEmptyReply
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		} else {
			logging.Ctx(ctx).Debug().Str("type", fmt.Sprintf("%T", part)).Msg("skipping non-text gemini part")
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		metrics.RecordInference("chat", "bad_response")
		return "", ErrEmptyReply
	}

	metrics.RecordInference("chat", "ok")
	return text.String(), nil
}

func splitConversation(messages []Message) (system string, history []*genai.Content, last string, err error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("conversation must end with a user message")
	}

	var instructions []string
	for _, m := range messages[:len(messages)-1] {
		switch m.Role {
		case RoleSystem:
			instructions = append(instructions, m.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return strings.Join(instructions, "\n"), history, messages[len(messages)-1].Content, nil
}

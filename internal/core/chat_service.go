package core

import (
	"context"
	"errors"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
)

const cbtSystemPrompt = "You are a helpful assistant trained in cognitive behavioral therapy (CBT). " +
	"Your goal is to help users identify negative thought patterns and develop " +
	"healthier thinking habits. Be empathetic and supportive, but also help " +
	"users challenge distorted thoughts."

const (
	mockReply    = "I'm here to help you with cognitive behavioral therapy techniques. What are you feeling right now?"
	troubleReply = "I'm sorry, I'm having trouble processing your request right now. Please try again later."
	errorReply   = "I apologize, but I encountered an error. Please try again later."
)

var (
	mockSuggestions = []string{
		"Tell me more about that feeling",
		"When did you start feeling this way?",
		"What thoughts are associated with this feeling?",
	}
	troubleSuggestions = []string{
		"How are you feeling right now?",
		"Would you like to try a different approach?",
		"Let's take a deep breath together.",
	}
	errorSuggestions = []string{
		"Let's try a different approach",
		"How are you feeling right now?",
	}
	cbtSuggestions = []string{
		"What evidence supports this thought?",
		"Is there another way to look at this situation?",
		"What would you tell a friend who was in this situation?",
	}
)

type ChatRequest struct {
	Message string       `json:"message" validate:"required"`
	History []ai.Message `json:"history" validate:"omitempty,dive"`
}

type ChatReply struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

type ChatService struct {
	model ai.ChatModel
}

// NewChatService answers with a fixed prompt when model is nil.
func NewChatService(model ai.ChatModel) *ChatService {
	return &ChatService{model: model}
}

// Reply never fails; provider errors become apologetic replies.
func (s *ChatService) Reply(ctx context.Context, req ChatRequest) ChatReply {
	if s.model == nil {
		logging.Ctx(ctx).Warn().Msg("no chat provider configured, using mock chatbot response")
		return reply(mockReply, mockSuggestions)
	}

	text, err := s.model.Complete(ctx, buildConversation(req))
	if err != nil {
		var statusErr *ai.StatusError
		if errors.As(err, &statusErr) {
			logging.Ctx(ctx).Error().Err(err).Int("status", statusErr.Code).Msg("chat provider returned an error status")
			return reply(troubleReply, troubleSuggestions)
		}
		logging.Ctx(ctx).Error().Err(err).Msg("error during chatbot interaction")
		return reply(errorReply, errorSuggestions)
	}
	return reply(text, cbtSuggestions)
}

// buildConversation puts the CBT instruction first unless the caller's
// history already carries a system message, then appends the new message.
func buildConversation(req ChatRequest) []ai.Message {
	hasSystem := false
	for _, m := range req.History {
		if m.Role == ai.RoleSystem {
			hasSystem = true
			break
		}
	}

	messages := make([]ai.Message, 0, len(req.History)+2)
	if !hasSystem {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: cbtSystemPrompt})
	}
	messages = append(messages, req.History...)
	return append(messages, ai.Message{Role: ai.RoleUser, Content: req.Message})
}

func reply(text string, suggestions []string) ChatReply {
	return ChatReply{Response: text, Suggestions: append([]string(nil), suggestions...)}
}

package ai

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
)

const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"

	// Sentiment inputs are cut to this many characters.
	maxSentimentInput = 512

	negativeSuggestionThreshold = 0.3
	defaultPositiveScore        = 0.5
)

var negativeSuggestions = []string{
	"Consider practicing deep breathing for 5 minutes",
	"Try to identify specific triggers for these feelings",
	"Remember a time you felt more positive about this situation",
}

// Sentiment is a label/score pair merged with locally extracted keywords.
// Score is the probability of POSITIVE.
type Sentiment struct {
	Score       float64  `json:"score"`
	Label       string   `json:"label"`
	Keywords    []string `json:"keywords"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AssembleSentiment attaches coping suggestions only to strongly negative
// results.
func AssembleSentiment(label string, score float64, keywords []string) Sentiment {
	s := Sentiment{Score: score, Label: label, Keywords: keywords}
	if s.Keywords == nil {
		s.Keywords = []string{}
	}
	if label == LabelNegative && score < negativeSuggestionThreshold {
		s.Suggestions = append([]string(nil), negativeSuggestions...)
	}
	return s
}

// MockSentiment is returned when no inference credentials are configured.
func MockSentiment() Sentiment {
	return Sentiment{Score: 0.75, Label: LabelPositive, Keywords: []string{"happy", "good", "better"}}
}

// Analyzer scores text with a hosted classification model.
type Analyzer struct {
	client *HFClient
	model  string
}

// NewAnalyzer returns an analyzer that answers with MockSentiment when client
// is nil.
func NewAnalyzer(client *HFClient, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze returns ErrUnavailable, wrapped, whenever the model gives no usable
// answer. Callers decide whether that is fatal.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Sentiment, error) {
	if a.client == nil {
		logging.Debug().Msg("no inference api key, returning mock sentiment")
		s := MockSentiment()
		return &s, nil
	}

	body, err := a.client.Post(ctx, a.model, map[string]string{"inputs": truncate(text, maxSentimentInput)}, SentimentTimeout)
	if err != nil {
		metrics.RecordInference("sentiment", "error")
		logging.Ctx(ctx).Error().Err(err).Msg("sentiment analysis failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	items, err := parseLabelScores(body)
	if err != nil || len(items) == 0 {
		metrics.RecordInference("sentiment", "bad_response")
		logging.Ctx(ctx).Error().Err(err).Msg("unexpected sentiment response")
		return nil, fmt.Errorf("%w: unexpected sentiment response", ErrUnavailable)
	}

	score := defaultPositiveScore
	for _, it := range items {
		if it.Label == LabelPositive {
			score = it.Score
			break
		}
	}

	metrics.RecordInference("sentiment", "ok")
	s := AssembleSentiment(items[0].Label, score, ExtractKeywords(text, DefaultKeywordCount))
	return &s, nil
}

// The classification endpoint answers [[{label, score}...]] for a single
// input; older deployments answer the flat list.
func parseLabelScores(body []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) > 0 {
			return nested[0], nil
		}
		return nil, nil
	}
	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment response: %w", err)
	}
	return flat, nil
}

package core

import (
	"context"
	"fmt"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

type JournalInput struct {
	Title     string   `json:"title" validate:"required,min=1,max=200"`
	Content   string   `json:"content" validate:"required"`
	MoodID    *string  `json:"mood_id"`
	Tags      []string `json:"tags"`
	ImageURLs []string `json:"image_urls"`
}

// JournalPatch holds the fields to change; nil fields are left alone.
type JournalPatch struct {
	Title     *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Content   *string  `json:"content" validate:"omitempty,min=1"`
	MoodID    *string  `json:"mood_id"`
	Tags      []string `json:"tags"`
	ImageURLs []string `json:"image_urls"`
}

type JournalAnalysis struct {
	EntryID        string   `json:"entry_id"`
	SentimentScore float64  `json:"sentiment_score"`
	SentimentLabel string   `json:"sentiment_label"`
	Keywords       []string `json:"keywords"`
	Suggestions    []string `json:"suggestions"`
}

// SentimentAnalyzer is satisfied by *ai.Analyzer.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*ai.Sentiment, error)
}

// EnrichmentPublisher queues post-commit work for a journal entry.
type EnrichmentPublisher interface {
	Publish(ctx context.Context, job EnrichmentJob) error
}

type JournalService struct {
	dbStore   *store.Store
	analyzer  SentimentAnalyzer
	publisher EnrichmentPublisher
}

// NewJournalService accepts a nil publisher, in which case entries are never
// enriched in the background.
func NewJournalService(db *store.Store, analyzer SentimentAnalyzer, publisher EnrichmentPublisher) *JournalService {
	return &JournalService{dbStore: db, analyzer: analyzer, publisher: publisher}
}

func (s *JournalService) Create(ctx context.Context, userID string, in JournalInput) (*store.JournalEntry, error) {
	entry, err := s.dbStore.CreateJournal(ctx, store.JournalEntry{
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		MoodID:    in.MoodID,
		Tags:      in.Tags,
		ImageURLs: in.ImageURLs,
	})
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, entry)
	return entry, nil
}

func (s *JournalService) List(ctx context.Context, userID string, opts store.ListOptions) ([]store.JournalEntry, error) {
	return s.dbStore.ListJournals(ctx, userID, opts)
}

func (s *JournalService) Get(ctx context.Context, id, userID string) (*store.JournalEntry, error) {
	entry, err := s.dbStore.GetJournal(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Update applies patch and re-enriches the entry when its content changed.
func (s *JournalService) Update(ctx context.Context, id, userID string, patch JournalPatch) (*store.JournalEntry, error) {
	entry, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	contentChanged := false
	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.Content != nil && *patch.Content != entry.Content {
		entry.Content = *patch.Content
		contentChanged = true
	}
	if patch.MoodID != nil {
		entry.MoodID = patch.MoodID
	}
	if patch.Tags != nil {
		entry.Tags = patch.Tags
	}
	if patch.ImageURLs != nil {
		entry.ImageURLs = patch.ImageURLs
	}

	ok, err := s.dbStore.UpdateJournal(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if contentChanged {
		s.enqueue(ctx, entry)
	}
	return entry, nil
}

func (s *JournalService) Delete(ctx context.Context, id, userID string) error {
	ok, err := s.dbStore.DeleteJournal(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Analyze runs sentiment analysis on the entry synchronously. The score is
// stored only if the entry has none yet. It returns ai.ErrUnavailable when
// the analyzer gives no result.
func (s *JournalService) Analyze(ctx context.Context, id, userID string) (*JournalAnalysis, error) {
	entry, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	sentiment, err := s.analyzer.Analyze(ctx, entry.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze journal entry %s: %w", id, err)
	}

	if _, err := s.dbStore.SetJournalSentimentIfAbsent(ctx, entry.ID, userID, sentiment.Score); err != nil {
		return nil, err
	}

	suggestions := sentiment.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return &JournalAnalysis{
		EntryID:        entry.ID,
		SentimentScore: sentiment.Score,
		SentimentLabel: sentiment.Label,
		Keywords:       sentiment.Keywords,
		Suggestions:    suggestions,
	}, nil
}

func (s *JournalService) enqueue(ctx context.Context, entry *store.JournalEntry) {
	if s.publisher == nil {
		return
	}
	job := EnrichmentJob{EntryID: entry.ID, UserID: entry.UserID}
	if err := s.publisher.Publish(ctx, job); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("entry_id", entry.ID).Msg("failed to queue journal enrichment")
	}
}

package core

import (
	"context"
	"time"

	"github.com/FlaxHawk/Anxiety-Ally/internal/mood"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

type MoodInput struct {
	Score     int        `json:"score" validate:"required,min=1,max=10"`
	Notes     *string    `json:"notes"`
	Timestamp *time.Time `json:"timestamp"`
}

type MoodPatch struct {
	Score *int    `json:"score" validate:"omitempty,min=1,max=10"`
	Notes *string `json:"notes"`
}

type MoodService struct {
	dbStore *store.Store
	now     func() time.Time
}

func NewMoodService(db *store.Store) *MoodService {
	return &MoodService{dbStore: db, now: time.Now}
}

func (s *MoodService) Create(ctx context.Context, userID string, in MoodInput) (*store.Mood, error) {
	m := store.Mood{UserID: userID, Score: in.Score, Notes: in.Notes}
	if in.Timestamp != nil {
		m.Timestamp = *in.Timestamp
	}
	return s.dbStore.CreateMood(ctx, m)
}

func (s *MoodService) List(ctx context.Context, userID string, opts store.ListOptions) ([]store.Mood, error) {
	return s.dbStore.ListMoods(ctx, userID, opts)
}

func (s *MoodService) Get(ctx context.Context, id, userID string) (*store.Mood, error) {
	m, err := s.dbStore.GetMood(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *MoodService) Update(ctx context.Context, id, userID string, patch MoodPatch) (*store.Mood, error) {
	m, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if patch.Score != nil {
		m.Score = *patch.Score
	}
	if patch.Notes != nil {
		m.Notes = patch.Notes
	}
	ok, err := s.dbStore.UpdateMood(ctx, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *MoodService) Delete(ctx context.Context, id, userID string) error {
	ok, err := s.dbStore.DeleteMood(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Aggregate validates period before touching the store. Missing dates default
// to mood.DefaultRange ending today, or ending on endDate when only that is
// given.
func (s *MoodService) Aggregate(ctx context.Context, userID, period string, startDate, endDate *time.Time) (*mood.Result, error) {
	p, err := mood.ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	anchor := s.now().UTC()
	if endDate != nil {
		anchor = endDate.UTC()
	}
	start, end := mood.DefaultRange(p, anchor)
	if startDate != nil {
		start = startDate.UTC()
	}

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Microsecond)

	moods, err := s.dbStore.ListMoods(ctx, userID, store.ListOptions{Start: &from, End: &to})
	if err != nil {
		return nil, err
	}

	records := make([]mood.Record, 0, len(moods))
	for _, m := range moods {
		records = append(records, mood.Record{Score: m.Score, Timestamp: m.Timestamp})
	}
	result := mood.Aggregate(records, p, start, end)
	return &result, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const journalColumns = "id, user_id, title, content, mood_id, tags, image_urls, sentiment_score, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJournal(row rowScanner) (*JournalEntry, error) {
	var (
		e              JournalEntry
		moodID         sql.NullString
		tags, images   string
		sentimentScore sql.NullFloat64
		updatedAt      sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &moodID, &tags, &images, &sentimentScore, &e.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if moodID.Valid {
		e.MoodID = &moodID.String
	}
	if sentimentScore.Valid {
		e.SentimentScore = &sentimentScore.Float64
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		e.UpdatedAt = &t
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &e.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls: %w", err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if e.ImageURLs == nil {
		e.ImageURLs = []string{}
	}
	return &e, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateJournal assigns an id and creation time to entry and inserts it.
func (s *Store) CreateJournal(ctx context.Context, entry JournalEntry) (*JournalEntry, error) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = now()
	entry.UpdatedAt = nil
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if entry.ImageURLs == nil {
		entry.ImageURLs = []string{}
	}
	tags, err := encodeList(entry.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	images, err := encodeList(entry.ImageURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image urls: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind("INSERT INTO journal_entries ("+journalColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		entry.ID, entry.UserID, entry.Title, entry.Content, entry.MoodID, tags, images, entry.SentimentScore, entry.CreatedAt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) GetJournal(ctx context.Context, id, userID string) (*JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+journalColumns+" FROM journal_entries WHERE id = ? AND user_id = ?"), id, userID)
	e, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return e, nil
}

// ListJournals returns userID's entries, newest first, with opts bounding
// created_at.
func (s *Store) ListJournals(ctx context.Context, userID string, opts ListOptions) ([]JournalEntry, error) {
	query, args := s.rangeClause("SELECT "+journalColumns+" FROM journal_entries WHERE user_id = ?",
		[]interface{}{userID}, "created_at", opts)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// UpdateJournal writes the mutable fields of entry and stamps updated_at.
// It reports whether a row owned by entry.UserID was changed.
func (s *Store) UpdateJournal(ctx context.Context, entry *JournalEntry) (bool, error) {
	tags, err := encodeList(entry.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}
	images, err := encodeList(entry.ImageURLs)
	if err != nil {
		return false, fmt.Errorf("failed to encode image urls: %w", err)
	}
	updated := now()

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE journal_entries
        SET title = ?, content = ?, mood_id = ?, tags = ?, image_urls = ?, updated_at = ?
        WHERE id = ? AND user_id = ?`),
		entry.Title, entry.Content, entry.MoodID, tags, images, updated, entry.ID, entry.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to update journal entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update journal entry: %w", err)
	}
	if n > 0 {
		entry.UpdatedAt = &updated
	}
	return n > 0, nil
}

func (s *Store) DeleteJournal(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM journal_entries WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete journal entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return n > 0, nil
}

// SetJournalSentiment updates only sentiment_score. A missing entry is not an
// error.
func (s *Store) SetJournalSentiment(ctx context.Context, id, userID string, score float64) error {
	_, err := s.db.ExecContext(ctx, s.rebind("UPDATE journal_entries SET sentiment_score = ? WHERE id = ? AND user_id = ?"),
		score, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set sentiment score: %w", err)
	}
	return nil
}

// SetJournalSentimentIfAbsent stores score only when the entry has none yet.
func (s *Store) SetJournalSentimentIfAbsent(ctx context.Context, id, userID string, score float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE journal_entries SET sentiment_score = ?
        WHERE id = ? AND user_id = ? AND sentiment_score IS NULL`), score, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to set sentiment score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set sentiment score: %w", err)
	}
	return n > 0, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const moodColumns = "id, user_id, score, notes, timestamp, created_at"

func scanMood(row rowScanner) (*Mood, error) {
	var (
		m     Mood
		notes sql.NullString
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Score, &notes, &m.Timestamp, &m.CreatedAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		m.Notes = &notes.String
	}
	m.Timestamp = m.Timestamp.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// CreateMood inserts m. A zero Timestamp defaults to the creation time.
func (s *Store) CreateMood(ctx context.Context, m Mood) (*Mood, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = now()
	if m.Timestamp.IsZero() {
		m.Timestamp = m.CreatedAt
	} else {
		m.Timestamp = m.Timestamp.UTC().Truncate(time.Microsecond)
	}

	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO moods ("+moodColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		m.ID, m.UserID, m.Score, m.Notes, m.Timestamp, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mood: %w", err)
	}
	return &m, nil
}

func (s *Store) GetMood(ctx context.Context, id, userID string) (*Mood, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+moodColumns+" FROM moods WHERE id = ? AND user_id = ?"), id, userID)
	m, err := scanMood(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mood: %w", err)
	}
	return m, nil
}

// ListMoods returns userID's moods, newest first, with opts bounding
// timestamp. A zero Limit returns every match.
func (s *Store) ListMoods(ctx context.Context, userID string, opts ListOptions) ([]Mood, error) {
	query, args := s.rangeClause("SELECT "+moodColumns+" FROM moods WHERE user_id = ?",
		[]interface{}{userID}, "timestamp", opts)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	defer rows.Close()

	moods := []Mood{}
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood: %w", err)
		}
		moods = append(moods, *m)
	}
	return moods, rows.Err()
}

// UpdateMood writes score and notes of m.
func (s *Store) UpdateMood(ctx context.Context, m *Mood) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE moods SET score = ?, notes = ? WHERE id = ? AND user_id = ?"),
		m.Score, m.Notes, m.ID, m.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to update mood: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update mood: %w", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteMood(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM moods WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete mood: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete mood: %w", err)
	}
	return n > 0, nil
}

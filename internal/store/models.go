package store

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type JournalEntry struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	MoodID         *string    `json:"mood_id"`
	Tags           []string   `json:"tags"`
	ImageURLs      []string   `json:"image_urls"`
	SentimentScore *float64   `json:"sentiment_score"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type Mood struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Notes     *string   `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions pages and optionally bounds a per-user listing. Start and End
// are inclusive.
type ListOptions struct {
	Skip  int
	Limit int
	Start *time.Time
	End   *time.Time
}

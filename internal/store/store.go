package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrDuplicateEmail = errors.New("email already registered")

// Store persists users, journal entries and moods. Every per-record query is
// scoped by user id, so a record owned by someone else reads as not found.
type Store struct {
	db     *sql.DB
	driver string
}

// New opens driver ("sqlite3" or "postgres") at dsn and creates missing
// tables.
func New(driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One connection keeps :memory: databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	timeType, floatType := "DATETIME", "REAL"
	if s.driver == DriverPostgres {
		timeType, floatType = "TIMESTAMPTZ", "DOUBLE PRECISION"
	}

	schema := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT UNIQUE NOT NULL,
        full_name TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        created_at %[1]s NOT NULL
    );

    CREATE TABLE IF NOT EXISTS moods (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL REFERENCES users (id),
        score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
        notes TEXT,
        timestamp %[1]s NOT NULL,
        created_at %[1]s NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_moods_user_timestamp ON moods (user_id, timestamp);

    CREATE TABLE IF NOT EXISTS journal_entries (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL REFERENCES users (id),
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        mood_id TEXT,
        tags TEXT NOT NULL DEFAULT '[]',
        image_urls TEXT NOT NULL DEFAULT '[]',
        sentiment_score %[2]s,
        created_at %[1]s NOT NULL,
        updated_at %[1]s
    );

    CREATE INDEX IF NOT EXISTS idx_journal_entries_user_created ON journal_entries (user_id, created_at);
    `, timeType, floatType)

	_, err := s.db.Exec(schema)
	return err
}

// rebind rewrites ? placeholders as $1, $2... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// now is truncated to microseconds, the finest precision both drivers keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// User methods

const userColumns = "id, email, full_name, password_hash, created_at"

func (s *Store) CreateUser(ctx context.Context, email, fullName, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?)"),
		u.ID, u.Email, u.FullName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE "+column+" = ?"), value).
		Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// rangeClause appends inclusive bounds on column and the page window.
func (s *Store) rangeClause(query string, args []interface{}, column string, opts ListOptions) (string, []interface{}) {
	if opts.Start != nil {
		query += " AND " + column + " >= ?"
		args = append(args, opts.Start.UTC())
	}
	if opts.End != nil {
		query += " AND " + column + " <= ?"
		args = append(args, opts.End.UTC())
	}
	query += " ORDER BY " + column + " DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Skip)
	}
	return query, args
}

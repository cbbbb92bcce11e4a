// Package store persists users, activity, and feedback in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the bot's SQLite database.
type Store struct {
	db *sql.DB
}

// User is one tracked bot user.
type User struct {
	ID        int64
	FirstName string
	Username  string
}

// Feedback is one feedback message, optionally joined with user details.
type Feedback struct {
	ID        int64
	UserID    int64
	Message   string
	Timestamp time.Time
	Status    string
	FirstName string
	Username  string
}

// SearchCount is one popular-search aggregate row.
type SearchCount struct {
	Query string
	Count int
}

// Stats aggregates the admin dashboard numbers.
type Stats struct {
	TotalUsers      int
	ActiveToday     int
	ActiveWeek      int
	PendingFeedback int
	PopularSearches []SearchCount
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; serialize access through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		first_name TEXT,
		username TEXT,
		joined_date TEXT,
		last_active TEXT
	);

	CREATE TABLE IF NOT EXISTS user_activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		activity_type TEXT,
		search_query TEXT,
		timestamp TEXT,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		message TEXT,
		timestamp TEXT,
		status TEXT DEFAULT 'pending',
		FOREIGN KEY (user_id) REFERENCES users (id)
	);

	CREATE TABLE IF NOT EXISTS feedback_replies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feedback_id INTEGER,
		reply TEXT,
		timestamp TEXT,
		FOREIGN KEY (feedback_id) REFERENCES feedback (id)
	);
	CREATE INDEX IF NOT EXISTS idx_activity_ts ON user_activity(timestamp);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// TrackUser upserts the user row and bumps last_active.
func (s *Store) TrackUser(ctx context.Context, u User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, username, joined_date, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			username = excluded.username,
			last_active = excluded.last_active
	`, u.ID, u.FirstName, u.Username, now, now)
	if err != nil {
		return fmt.Errorf("track user %d: %w", u.ID, err)
	}
	return nil
}

// LogActivity records one user action; searchQuery may be empty.
func (s *Store) LogActivity(ctx context.Context, userID int64, activityType, searchQuery string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_activity (user_id, activity_type, search_query, timestamp)
		VALUES (?, ?, ?, ?)
	`, userID, activityType, searchQuery, now)
	if err != nil {
		return fmt.Errorf("log activity for %d: %w", userID, err)
	}
	return nil
}

// AllUsers returns every tracked user id, for broadcast.
func (s *Store) AllUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UserStats computes the admin dashboard aggregates.
func (s *Store) UserStats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		dst   *int
		query string
	}{
		{&st.TotalUsers, "SELECT COUNT(*) FROM users"},
		{&st.ActiveToday, "SELECT COUNT(DISTINCT user_id) FROM user_activity WHERE timestamp > datetime('now', '-1 day')"},
		{&st.ActiveWeek, "SELECT COUNT(DISTINCT user_id) FROM user_activity WHERE timestamp > datetime('now', '-7 day')"},
		{&st.PendingFeedback, "SELECT COUNT(*) FROM feedback WHERE status = 'pending'"},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("stats query: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT search_query, COUNT(*) AS count
		FROM user_activity
		WHERE search_query != '' AND search_query NOT LIKE '/%'
		GROUP BY search_query
		ORDER BY count DESC
		LIMIT 5
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("popular searches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SearchCount
		if err := rows.Scan(&sc.Query, &sc.Count); err != nil {
			return Stats{}, err
		}
		st.PopularSearches = append(st.PopularSearches, sc)
	}
	return st, rows.Err()
}

// SaveFeedback stores a new pending feedback message and returns its id.
func (s *Store) SaveFeedback(ctx context.Context, userID int64, message string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, message, timestamp) VALUES (?, ?, ?)
	`, userID, message, now)
	if err != nil {
		return 0, fmt.Errorf("save feedback: %w", err)
	}
	return res.LastInsertId()
}

// PendingFeedback lists the newest pending feedback joined with user details.
func (s *Store) PendingFeedback(ctx context.Context) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.message, f.timestamp, f.status,
		       COALESCE(u.first_name, ''), COALESCE(u.username, '')
		FROM feedback f
		JOIN users u ON f.user_id = u.id
		WHERE f.status = 'pending'
		ORDER BY f.timestamp DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("pending feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var ts string
		if err := rows.Scan(&f.ID, &f.UserID, &f.Message, &ts, &f.Status, &f.FirstName, &f.Username); err != nil {
			return nil, err
		}
		f.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, f)
	}
	return out, rows.Err()
}

// PendingFeedbackCount returns the number of feedback rows awaiting a reply.
func (s *Store) PendingFeedbackCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback WHERE status = 'pending'").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return n, nil
}

// FeedbackByID looks up one feedback row.
func (s *Store) FeedbackByID(ctx context.Context, id int64) (Feedback, error) {
	var f Feedback
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, message, status FROM feedback WHERE id = ?
	`, id).Scan(&f.ID, &f.UserID, &f.Message, &f.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Feedback{}, ErrNotFound
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("feedback %d: %w", id, err)
	}
	return f, nil
}

// SaveReply records an admin reply and marks the feedback as replied.
func (s *Store) SaveReply(ctx context.Context, feedbackID int64, reply string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO feedback_replies (feedback_id, reply, timestamp) VALUES (?, ?, ?)
	`, feedbackID, reply, now); err != nil {
		return fmt.Errorf("save reply: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE feedback SET status = 'replied' WHERE id = ?
	`, feedbackID); err != nil {
		return fmt.Errorf("mark replied: %w", err)
	}
	return tx.Commit()
}

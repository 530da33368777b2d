// Package tweetstore persists collected tweets in a local SQLite database.
// Inserts are idempotent on tweet ID so re-running a collection pass never
// duplicates rows.
package tweetstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"

	"twscraper/pkg/twitter"
)

//go:embed schema.sql
var schema string

// StoredTweet is one persisted tweet row
type StoredTweet struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Username        string    `json:"username"`
	Likes           int       `json:"likes"`
	Retweets        int       `json:"retweets"`
	Timestamp       time.Time `json:"timestamp"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	Category        string    `json:"category"`
}

// Store wraps the SQLite database holding collected tweets
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Exists reports whether a tweet with the given ID is already stored
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tweets WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query tweet %s: %w", id, err)
	}
	return true, nil
}

// Save inserts a tweet under the given category. Saving an already stored
// ID is a no-op.
func (s *Store) Save(ctx context.Context, tweet twitter.Tweet, category string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tweets
			(id, text, username, likes, retweets, timestamp, profile_image_url, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tweet.ID, tweet.Text, tweet.Username, tweet.Likes, tweet.Retweets,
		tweet.Timestamp.UTC(), tweet.ProfileImageURL, category,
	)
	if err != nil {
		return fmt.Errorf("failed to save tweet %s: %w", tweet.ID, err)
	}
	return nil
}

// Recent returns tweets whose timestamp falls within the given window,
// newest first
func (s *Store) Recent(ctx context.Context, window time.Duration) ([]StoredTweet, error) {
	cutoff := time.Now().Add(-window).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, username, likes, retweets, timestamp, profile_image_url, category
		FROM tweets
		WHERE timestamp >= ?
		ORDER BY timestamp DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tweets: %w", err)
	}
	defer rows.Close()

	var tweets []StoredTweet
	for rows.Next() {
		var t StoredTweet
		var profileImage sql.NullString
		if err := rows.Scan(&t.ID, &t.Text, &t.Username, &t.Likes, &t.Retweets,
			&t.Timestamp, &profileImage, &t.Category); err != nil {
			return nil, fmt.Errorf("failed to scan tweet row: %w", err)
		}
		t.ProfileImageURL = profileImage.String
		tweets = append(tweets, t)
	}

	return tweets, rows.Err()
}

// Count returns the total number of stored tweets
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tweets: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Package goalstore persists accepted goals as keyed records.
package goalstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no saved goal has the requested ID.
var ErrNotFound = errors.New("saved goal not found")

// SavedGoal is one persisted refinement outcome.
type SavedGoal struct {
	ID        string          `json:"id"`
	Input     string          `json:"input"`
	Goal      json.RawMessage `json:"goal"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store manages the saved-goals database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the goals database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "goals.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		input TEXT NOT NULL,
		goal_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_goals_created_at ON goals(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists a goal and returns it with its assigned ID.
func (s *Store) Save(ctx context.Context, input string, goal json.RawMessage) (*SavedGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := &SavedGoal{
		ID:        uuid.NewString(),
		Input:     input,
		Goal:      goal,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, input, goal_json, created_at) VALUES (?, ?, ?, ?)`,
		saved.ID, saved.Input, string(saved.Goal), saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}
	return saved, nil
}

// Get returns one saved goal by ID.
func (s *Store) Get(ctx context.Context, id string) (*SavedGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, goal_json, created_at FROM goals WHERE id = ?`, id)

	var saved SavedGoal
	var goalJSON string
	if err := row.Scan(&saved.ID, &saved.Input, &goalJSON, &saved.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	saved.Goal = json.RawMessage(goalJSON)
	return &saved, nil
}

// List returns all saved goals, newest first.
func (s *Store) List(ctx context.Context) ([]SavedGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, goal_json, created_at FROM goals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []SavedGoal
	for rows.Next() {
		var saved SavedGoal
		var goalJSON string
		if err := rows.Scan(&saved.ID, &saved.Input, &goalJSON, &saved.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		saved.Goal = json.RawMessage(goalJSON)
		goals = append(goals, saved)
	}
	return goals, rows.Err()
}

// Delete removes one saved goal by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

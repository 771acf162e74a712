package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the sqlite-backed telemetry log. It implements Sink for the
// pipeline and exposes Query/Summary for the usage surface.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the telemetry database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "telemetry.db")

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

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		model TEXT NOT NULL,
		success INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		input_cost_usd REAL NOT NULL,
		output_cost_usd REAL NOT NULL,
		total_cost_usd REAL NOT NULL,
		input TEXT NOT NULL,
		output_json TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_model ON records(model);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Emit appends one record. Assigns an ID and timestamp when the caller
// left them empty; never mutates the record afterwards.
func (s *Store) Emit(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	var output sql.NullString
	if rec.OutputJSON != nil {
		output = sql.NullString{String: string(rec.OutputJSON), Valid: true}
	}
	var errMsg sql.NullString
	if rec.ErrorMessage != "" {
		errMsg = sql.NullString{String: rec.ErrorMessage, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			id, timestamp, model, success, latency_ms,
			prompt_tokens, completion_tokens, total_tokens,
			input_cost_usd, output_cost_usd, total_cost_usd,
			input, output_json, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.Model, rec.Success, rec.LatencyMS,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		rec.InputCostUSD, rec.OutputCostUSD, rec.TotalCostUSD,
		rec.Input, output, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry record: %w", err)
	}
	return nil
}

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	Since        time.Time
	Model        string
	FailuresOnly bool
	Limit        int
}

// Query returns records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, timestamp, model, success, latency_ms,
		       prompt_tokens, completion_tokens, total_tokens,
		       input_cost_usd, output_cost_usd, total_cost_usd,
		       input, output_json, error_message
		FROM records WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since)
	}
	if f.Model != "" {
		query += " AND model = ?"
		args = append(args, f.Model)
	}
	if f.FailuresOnly {
		query += " AND success = 0"
	}

	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var output, errMsg sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.Model, &rec.Success, &rec.LatencyMS,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens,
			&rec.InputCostUSD, &rec.OutputCostUSD, &rec.TotalCostUSD,
			&rec.Input, &output, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry record: %w", err)
		}
		if output.Valid {
			rec.OutputJSON = []byte(output.String)
		}
		if errMsg.Valid {
			rec.ErrorMessage = errMsg.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates the telemetry log for the usage surface.
type Stats struct {
	TotalCalls       int     `json:"total_calls"`
	SuccessfulCalls  int     `json:"successful_calls"`
	FailedCalls      int     `json:"failed_calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
}

// Summary aggregates across all stored records.
func (s *Store) Summary(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(total_cost_usd), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM records`)

	var stats Stats
	if err := row.Scan(
		&stats.TotalCalls, &stats.SuccessfulCalls,
		&stats.PromptTokens, &stats.CompletionTokens, &stats.TotalTokens,
		&stats.TotalCostUSD, &stats.AvgLatencyMS,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate telemetry: %w", err)
	}
	stats.FailedCalls = stats.TotalCalls - stats.SuccessfulCalls
	return &stats, nil
}

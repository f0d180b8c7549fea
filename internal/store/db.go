package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/allredmatt/server-based-job-site/internal/scraper"
)

//go:embed schema.sql
var defaultSchema string

type Store struct {
	db *sql.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations executes the schema at schemaPath, or the embedded schema
// when schemaPath is empty.
func (s *Store) RunMigrations(schemaPath string) error {
	content := defaultSchema
	if schemaPath != "" {
		raw, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		content = string(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

func clampLimit(limit int, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Run is one recorded scrape.
type Run struct {
	ID         int64           `json:"id"`
	Keywords   []string        `json:"keywords"`
	Total      int             `json:"total"`
	Values     []scraper.Value `json:"values"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	keywords := run.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	values := run.Values
	if values == nil {
		values = []scraper.Value{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return 0, fmt.Errorf("encode values: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO scrape_runs (keywords, total, scrape_values, duration_ms, created_at)
VALUES ($1, $2, $3, $4, NOW())
RETURNING id
`, pq.Array(keywords), run.Total, string(payload), run.DurationMS).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// ListRuns returns runs newest first along with the total number stored.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]Run, int, error) {
	limit = clampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scrape_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, keywords, total, scrape_values, duration_ms, created_at
FROM scrape_runs
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			payload []byte
		)
		if err := rows.Scan(
			&r.ID,
			pq.Array(&r.Keywords),
			&r.Total,
			&payload,
			&r.DurationMS,
			&r.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(payload, &r.Values); err != nil {
			return nil, 0, fmt.Errorf("decode values for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

func (s *Store) DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
DELETE FROM scrape_runs
WHERE created_at < $1
`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

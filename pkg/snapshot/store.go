// Package snapshot persists the latest analysis result per stock code
// and computes the change set between consecutive runs.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kabuto-ai/kabuto/pkg/models"
)

// Store keeps one snapshot row per stock code, overwritten on each run.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
    code TEXT PRIMARY KEY,
    result TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save overwrites the snapshot for the result's code.
func (s *Store) Save(result *models.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", result.Code, err)
	}
	_, err = s.db.Exec(`
INSERT INTO snapshots (code, result, updated_at) VALUES (?, ?, ?)
ON CONFLICT(code) DO UPDATE SET result = excluded.result, updated_at = excluded.updated_at
`, result.Code, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("save snapshot for %s: %w", result.Code, err)
	}
	s.log.Debug("snapshot saved", "code", result.Code)
	return nil
}

// Load returns the previous snapshot for a code, or nil when there is
// none. A row that cannot be decoded counts as no prior snapshot: the
// next Save will replace it, so there is nothing actionable to report.
func (s *Store) Load(code string) *models.AnalysisResult {
	var payload string
	err := s.db.QueryRow(`SELECT result FROM snapshots WHERE code = ?`, code).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.log.Warn("failed to load snapshot", "code", code, "error", err)
		return nil
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		s.log.Warn("corrupt snapshot ignored", "code", code, "error", err)
		return nil
	}
	return &result
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BetterCallFirewall/Revalidator/internal/models"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// PRAGMA через DSN, чтобы они применялись к каждому соединению пула
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS assessments (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at DESC);
`

// SQLiteStore хранит документ целиком как JSON, статус и время вынесены в колонки
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite %s: %w: %v", path, ErrNotConnected, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("path", path).Msg("💾 SQLite store initialized")
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func (s *SQLiteStore) Create(ctx context.Context, doc *models.AssessmentDocument) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (id, status, created_at, updated_at, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		doc.ID, doc.Status, doc.CreatedAt.UnixNano(), doc.UpdatedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("create %s: %w", doc.ID, ErrAlreadyExists)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.AssessmentDocument, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM assessments WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	return decode([]byte(data))
}

// Update держит write-lock базы (BEGIN IMMEDIATE) на всё время read-modify-write
func (s *SQLiteStore) Update(ctx context.Context, id string, fn MutateFunc) (*models.AssessmentDocument, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var data string
	err = conn.QueryRowContext(ctx, `SELECT data FROM assessments WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}

	doc, err := decode([]byte(data))
	if err != nil {
		return nil, err
	}
	if err := applyMutation(doc, fn); err != nil {
		return nil, err
	}
	updated, err := encode(doc)
	if err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx,
		`UPDATE assessments SET status = ?, updated_at = ?, data = ? WHERE id = ?`,
		doc.Status, doc.UpdatedAt.UnixNano(), string(updated), id); err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.AssessmentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM assessments ORDER BY created_at DESC, id LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.AssessmentSummary, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		doc, err := decode([]byte(data))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, doc.Summarize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return summaries, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

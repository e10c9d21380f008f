package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"jiradataset/pkg/logger"
	"jiradataset/pkg/models"
)

// DefaultTable is used when no table name is configured
const DefaultTable = "jira_issues"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// PostgresSink upserts records into a table keyed by issue key
type PostgresSink struct {
	db     *pgxpool.Pool
	table  string
	logger logger.Logger
}

// ValidTableName reports whether name is a plain SQL identifier
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// NewPostgresSink connects to dsn and ensures the table exists
func NewPostgresSink(ctx context.Context, dsn, table string, log logger.Logger) (*PostgresSink, error) {
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	s := &PostgresSink{db: db, table: table, logger: log}
	if err := s.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureTable(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		issue_key      TEXT PRIMARY KEY,
		project        TEXT NOT NULL,
		title          TEXT NOT NULL,
		status         TEXT NOT NULL,
		classification TEXT NOT NULL,
		record         JSONB NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Name implements Sink
func (s *PostgresSink) Name() string {
	return "postgres"
}

// Write implements Sink. All records are upserted in a single transaction.
func (s *PostgresSink) Write(ctx context.Context, records []models.Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (issue_key, project, title, status, classification, record)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (issue_key) DO UPDATE SET
		  project = EXCLUDED.project, title = EXCLUDED.title, status = EXCLUDED.status,
		  classification = EXCLUDED.classification, record = EXCLUDED.record, updated_at = NOW()`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", r.IssueKey, err)
		}
		batch.Queue(query, r.IssueKey, r.Project, r.Title, r.Status, r.DerivedTasks.Classification, doc)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.InfoWithFields("Dataset upserted", map[string]interface{}{
		"table":   s.table,
		"records": len(records),
	})
	return nil
}

// Count returns the number of rows in the table
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

// Close implements Sink
func (s *PostgresSink) Close() error {
	s.db.Close()
	return nil
}

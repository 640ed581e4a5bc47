// internal/common/database/sinks.go
package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"applysync/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/lib/pq"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresSink appends application records to a relational table.
type PostgresSink struct {
	db    *sql.DB
	table string
}

func NewPostgresSink(db *sql.DB, table string) (*PostgresSink, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresSink{db: db, table: table}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the table when it does not exist yet.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	phone TEXT NOT NULL,
	document_url TEXT NOT NULL,
	education TEXT[] NOT NULL DEFAULT '{}',
	qualifications TEXT[] NOT NULL DEFAULT '{}',
	projects TEXT[] NOT NULL DEFAULT '{}',
	submitted_at TIMESTAMPTZ NOT NULL
)`, s.table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresSink) Append(ctx context.Context, rec models.ApplicationRecord) error {
	query := fmt.Sprintf(`INSERT INTO %s
	(name, email, phone, document_url, education, qualifications, projects, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		rec.Name,
		rec.Email,
		rec.Phone,
		rec.DocumentURL,
		pq.Array(nonNil(rec.Education)),
		pq.Array(nonNil(rec.Qualifications)),
		pq.Array(nonNil(rec.Projects)),
		submittedAt(rec),
	)
	if err != nil {
		return fmt.Errorf("insert application record: %w", err)
	}
	return nil
}

// ElasticsearchSink indexes application records for search.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Append(ctx context.Context, rec models.ApplicationRecord) error {
	rec.SubmittedAt = submittedAt(rec)
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal application record: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index application record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("index application record: %s: %s", res.Status(), string(msg))
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func submittedAt(rec models.ApplicationRecord) time.Time {
	if rec.SubmittedAt.IsZero() {
		return time.Now().UTC()
	}
	return rec.SubmittedAt.UTC()
}

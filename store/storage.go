package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"wikirag/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStorer is the relational side of persistence: document lifecycle and the
// title-to-URL mapping. Ranking never consults it; the vector index is
// self-sufficient at retrieval time.
type DBStorer interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	SaveDocument(ctx context.Context, tx pgx.Tx, doc types.Document) error
	SaveChunk(ctx context.Context, tx pgx.Tx, chunk types.Chunk) error
	WipeAll(ctx context.Context) error
	CountDocuments(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)
	ListDocuments(ctx context.Context) ([]types.Document, error)
	URLsByTitles(ctx context.Context, titles []string) (map[string]string, error)
	GetConfig(ctx context.Context) (types.LLMConfig, error)
	SetConfig(ctx context.Context, set map[string]any) (types.LLMConfig, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// Pool exposes the shared connection pool so the vector index can live in the
// same database.
func (p *PostgresStore) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresStore) createWikiTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		embedding_id UUID,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS config (
		id INT PRIMARY KEY,
		llm_url TEXT DEFAULT '',
		llm_model TEXT DEFAULT '',
		prompt_str TEXT DEFAULT ''
	);

	INSERT INTO config (id) VALUES (1) ON CONFLICT DO NOTHING;
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createWikiTables(ctx)
}

// Begin opens the ingest-wide transaction. Per-page work runs in nested
// transactions (savepoints) so one failing page rolls back alone while the
// final commit covers every successful one.
func (p *PostgresStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

func (p *PostgresStore) SaveDocument(ctx context.Context, tx pgx.Tx, doc types.Document) error {
	query := `INSERT INTO documents (id, title, url, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query, doc.ID, doc.Title, doc.URL, doc.Content, doc.CreatedAt)
	return err
}

func (p *PostgresStore) SaveChunk(ctx context.Context, tx pgx.Tx, c types.Chunk) error {
	query := `INSERT INTO chunks (id, document_id, chunk_index, content, embedding_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(ctx, query, c.ID, c.DocID, c.Index, c.Content, c.EmbeddingID, c.CreatedAt)
	return err
}

// WipeAll clears the relational side before a fresh ingest.
func (p *PostgresStore) WipeAll(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM chunks`); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `DELETE FROM documents`)
	return err
}

func (p *PostgresStore) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count)
	return count, err
}

func (p *PostgresStore) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count)
	return count, err
}

func (p *PostgresStore) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, title, url, content, created_at FROM documents ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.URL, &doc.Content, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// URLsByTitles resolves source titles to their wiki URLs in one query.
func (p *PostgresStore) URLsByTitles(ctx context.Context, titles []string) (map[string]string, error) {
	urls := make(map[string]string, len(titles))
	if len(titles) == 0 {
		return urls, nil
	}

	rows, err := p.pool.Query(ctx, `SELECT title, url FROM documents WHERE title = ANY($1)`, titles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var title, url string
		if err := rows.Scan(&title, &url); err != nil {
			return nil, err
		}
		urls[title] = url
	}
	return urls, rows.Err()
}

func (p *PostgresStore) GetConfig(ctx context.Context) (types.LLMConfig, error) {
	var cfg types.LLMConfig
	err := p.pool.QueryRow(ctx, `SELECT llm_url, llm_model, prompt_str FROM config WHERE id = 1`).
		Scan(&cfg.URL, &cfg.Model, &cfg.PromptStr)
	return cfg, err
}

// SetConfig updates the columns named in set and returns the resulting row.
// Column names come from struct db tags, not user input.
func (p *PostgresStore) SetConfig(ctx context.Context, set map[string]any) (types.LLMConfig, error) {
	assignments := make([]string, 0, len(set))
	args := make([]any, 0, len(set))
	i := 1
	for column, value := range set {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	query := fmt.Sprintf(`UPDATE config SET %s WHERE id = 1 RETURNING llm_url, llm_model, prompt_str`,
		strings.Join(assignments, ", "))

	var cfg types.LLMConfig
	err := p.pool.QueryRow(ctx, query, args...).Scan(&cfg.URL, &cfg.Model, &cfg.PromptStr)
	return cfg, err
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}

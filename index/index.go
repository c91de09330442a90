// Package index is the durable vector store for chunk embeddings. It owns
// everything retrieval needs: enriched chunk text, the embedding itself and
// the document metadata required to rebuild reading order.
package index

import (
	"context"
	"fmt"

	"wikirag/model"
	"wikirag/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type Indexer interface {
	Insert(ctx context.Context, docID uuid.UUID, title string, chunks []string) ([]uuid.UUID, error)
	Query(ctx context.Context, embedding []float32, limit int) ([]types.IndexedChunk, error)
	ScanAll(ctx context.Context) ([]types.IndexedChunk, error)
	Clear(ctx context.Context) error
}

type PGVectorIndex struct {
	pool     *pgxpool.Pool
	embedder model.EmbedderInterface
	dim      int
}

func NewPGVectorIndex(pool *pgxpool.Pool, embedder model.EmbedderInterface, dim int) *PGVectorIndex {
	return &PGVectorIndex{
		pool:     pool,
		embedder: embedder,
		dim:      dim,
	}
}

func (x *PGVectorIndex) Init(ctx context.Context) error {
	return x.createIndexTable(ctx)
}

func (x *PGVectorIndex) createIndexTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS index_chunks (
		embedding_id UUID PRIMARY KEY,
		document_id UUID NOT NULL,
		title TEXT NOT NULL,
		chunk_index INT NOT NULL,
		chunk_length INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_index_chunks_embedding ON index_chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_index_chunks_document_id ON index_chunks(document_id);
	`, x.dim)
	_, err := x.pool.Exec(ctx, query)
	return err
}

// Enrich prepends the document title annotation that gets embedded and stored
// together with the chunk text. The enrichment is permanent: retrieval returns
// the enriched form.
func Enrich(title, chunk string) string {
	return fmt.Sprintf("Page title: %s\n\nContent: %s", title, chunk)
}

// Insert embeds each chunk of a document, enriched with its title, and stores
// one index record per chunk. Returns the generated embedding ids in chunk
// order. An empty chunk list is a no-op.
func (x *PGVectorIndex) Insert(ctx context.Context, docID uuid.UUID, title string, chunks []string) ([]uuid.UUID, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	query := `
	INSERT INTO index_chunks (embedding_id, document_id, title, chunk_index, chunk_length, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	embeddingIDs := make([]uuid.UUID, 0, len(chunks))
	for i, chunk := range chunks {
		enriched := Enrich(title, chunk)
		embedding, err := x.embedder.Embed(enriched)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of %q: %w", i, title, err)
		}

		embeddingID := uuid.New()
		_, err = x.pool.Exec(ctx, query,
			embeddingID, docID, title, i, len(chunk), enriched, pgvector.NewVector(embedding),
		)
		if err != nil {
			return nil, fmt.Errorf("insert chunk %d of %q: %w", i, title, err)
		}
		embeddingIDs = append(embeddingIDs, embeddingID)
	}
	return embeddingIDs, nil
}

// Query runs a cosine nearest-neighbor search. Distance is carried on each
// result; callers interpret it via similarity = 1/(1+distance).
func (x *PGVectorIndex) Query(ctx context.Context, embedding []float32, limit int) ([]types.IndexedChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	query := `
	SELECT embedding_id, document_id, title, chunk_index, chunk_length, content,
	       embedding <=> $1 AS distance
	FROM index_chunks
	WHERE embedding IS NOT NULL
	ORDER BY embedding <=> $1
	LIMIT $2
	`
	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.IndexedChunk
	for rows.Next() {
		var c types.IndexedChunk
		if err := rows.Scan(
			&c.EmbeddingID,
			&c.Meta.DocumentID,
			&c.Meta.Title,
			&c.Meta.ChunkIndex,
			&c.Meta.ChunkLength,
			&c.Content,
			&c.Distance,
		); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ScanAll materializes every stored record with content and metadata. Only the
// keyword path uses this; the corpus stays small enough for a full scan.
func (x *PGVectorIndex) ScanAll(ctx context.Context) ([]types.IndexedChunk, error) {
	query := `
	SELECT embedding_id, document_id, title, chunk_index, chunk_length, content
	FROM index_chunks
	ORDER BY document_id, chunk_index
	`
	rows, err := x.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.IndexedChunk
	for rows.Next() {
		var c types.IndexedChunk
		if err := rows.Scan(
			&c.EmbeddingID,
			&c.Meta.DocumentID,
			&c.Meta.Title,
			&c.Meta.ChunkIndex,
			&c.Meta.ChunkLength,
			&c.Content,
		); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Clear drops every stored record and re-creates an empty, queryable index.
func (x *PGVectorIndex) Clear(ctx context.Context) error {
	if _, err := x.pool.Exec(ctx, `DROP TABLE IF EXISTS index_chunks`); err != nil {
		return err
	}
	return x.createIndexTable(ctx)
}

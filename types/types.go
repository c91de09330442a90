package types

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`   // Unique page title
	URL       string    `json:"url"`     // Unique page URL on the wiki
	Content   string    `json:"content"` // Full cleaned page text
	CreatedAt time.Time `json:"created_at"`
}

type Chunk struct {
	ID          uuid.UUID
	DocID       uuid.UUID
	Index       int // 0-based position within the parent document
	Content     string
	EmbeddingID uuid.NullUUID // Reference into the vector index, set after indexing
	CreatedAt   time.Time
}

// ChunkMeta travels with every vector index record. ChunkIndex mirrors
// Chunk.Index so document order can be rebuilt from the index alone.
type ChunkMeta struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Title       string    `json:"title"`
	ChunkIndex  int       `json:"chunk_index"`
	ChunkLength int       `json:"chunk_length"`
}

// IndexedChunk is a vector index record. Content is the title-enriched text
// that was embedded, not the raw chunk. Distance is populated only by
// similarity queries.
type IndexedChunk struct {
	EmbeddingID uuid.UUID
	Content     string
	Embedding   []float32
	Meta        ChunkMeta
	Distance    float64
}

// RankedChunk is a retrieval result. Score is 1.0 for keyword-anchored
// whole-document recovery and a combined rank score on the semantic path.
type RankedChunk struct {
	Content string    `json:"content"`
	Meta    ChunkMeta `json:"metadata"`
	Score   float64   `json:"similarity_score"`
}

type Answer struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
}

type Source struct {
	Title      string    `json:"title"`
	DocumentID uuid.UUID `json:"document_id"`
	Relevance  float64   `json:"relevance"`
}

type ExtractResponse struct {
	Message            string `json:"message"`
	DocumentsProcessed int    `json:"documents_processed"`
	TotalChunksCreated int    `json:"total_chunks_created"`
	TotalPagesFound    int    `json:"total_pages_found"`
}

type AskResponse struct {
	Question          string       `json:"question"`
	Answer            string       `json:"answer"`
	Confidence        float64      `json:"confidence"`
	Sources           []LinkSource `json:"sources"`
	ContextChunksUsed int          `json:"context_chunks_used"`
}

type LinkSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type SearchResponse struct {
	Query   string        `json:"query"`
	Results []RankedChunk `json:"results"`
}

type StatusResponse struct {
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Status    string `json:"status"` // "ready" or "empty"
}

type LLMConfig struct {
	URL       string `db:"llm_url" json:"llm_url,omitempty"`
	Model     string `db:"llm_model" json:"llm_model,omitempty"`
	PromptStr string `db:"prompt_str" json:"prompt_str,omitempty"`
}

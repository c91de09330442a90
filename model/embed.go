package model

import (
	"log/slog"
	"os"
)

// EmbedderInterface is the embedding model collaborator. The process owns a
// single instance constructed at startup; model handles are expensive and must
// not be rebuilt per request.
type EmbedderInterface interface {
	Embed(text string) ([]float32, error)
}

type Embedder struct {
	ollamaEmbedder *OllamaEmbedder
}

// NewEmbedder wires the Ollama embedder from environment settings.
func NewEmbedder() *Embedder {
	ollamaURL := os.Getenv("OLLAMA_EMBEDDING_URL")
	ollamaModel := os.Getenv("OLLAMA_EMBEDDING_MODEL")

	slog.Info("using local Ollama for embeddings", "model", ollamaModel)

	return &Embedder{
		ollamaEmbedder: NewOllamaEmbedder(ollamaURL, ollamaModel),
	}
}

func (e *Embedder) Embed(text string) ([]float32, error) {
	return e.ollamaEmbedder.Embed(text)
}

package qa

import (
	"testing"

	"wikirag/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranked(docID uuid.UUID, title, content string, score float64) types.RankedChunk {
	return types.RankedChunk{
		Content: "Page title: " + title + "\n\nContent: " + content,
		Meta:    types.ChunkMeta{DocumentID: docID, Title: title},
		Score:   score,
	}
}

func TestAssembleEmptyChunks(t *testing.T) {
	answer := NewService().Assemble("anything", nil)
	assert.Equal(t, 0.0, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, answer.Answer, "could not find")
}

func TestAssembleExtractsSolutionField(t *testing.T) {
	docID := uuid.New()
	chunks := []types.RankedChunk{
		ranked(docID, "Error 528 Handling", "erro = 528\nsolucao = Restart the billing service\ncausa = queue overload", 1.0),
	}
	answer := NewService().Assemble("what is 528", chunks)
	assert.Equal(t, "Restart the billing service", answer.Answer)
}

func TestAssembleSolutionRunsToEndOfText(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "Error 600", "erro = 600\nsolucao = Clear the cache and retry", 1.0),
	}
	answer := NewService().Assemble("600", chunks)
	assert.Equal(t, "Clear the cache and retry", answer.Answer)
}

func TestAssembleFallsBackToCleanedContext(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "VPN Setup", "Install the client and connect.", 0.8),
	}
	answer := NewService().Assemble("vpn", chunks)
	assert.Equal(t, "Install the client and connect.", answer.Answer)
}

func TestAssembleApologyNamesBestTitle(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "Lost Page", "", 0.7),
	}
	answer := NewService().Assemble("anything", chunks)
	assert.Contains(t, answer.Answer, `"Lost Page"`)
}

func TestStripAnnotation(t *testing.T) {
	assert.Equal(t, "body text", stripAnnotation("Page title: Some Doc\n\nContent: body text"))
	assert.Equal(t, "no prefix at all", stripAnnotation("no prefix at all"))
}

func TestSourcesDeduplicatedByDocument(t *testing.T) {
	docID := uuid.New()
	chunks := []types.RankedChunk{
		ranked(docID, "Guide", "part one", 0.9),
		ranked(docID, "Guide", "part two", 0.5),
	}
	answer := NewService().Assemble("q", chunks)
	require.Len(t, answer.Sources, 1)
	// First-seen wins, which on a sorted input is the higher relevance.
	assert.Equal(t, 0.9, answer.Sources[0].Relevance)
}

func TestSourcesSortedAndCapped(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "A", "a", 0.2),
		ranked(uuid.New(), "B", "b", 0.9),
		ranked(uuid.New(), "C", "c", 0.5),
		ranked(uuid.New(), "D", "d", 0.7),
	}
	answer := NewService().Assemble("q", chunks)
	require.Len(t, answer.Sources, maxSources)
	assert.Equal(t, "B", answer.Sources[0].Title)
	assert.Equal(t, "D", answer.Sources[1].Title)
	assert.Equal(t, "C", answer.Sources[2].Title)
}

func TestConfidenceIsMeanNotMax(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "A", "a", 0.8),
		ranked(uuid.New(), "B", "b", 0.6),
		ranked(uuid.New(), "C", "c", 0.4),
	}
	answer := NewService().Assemble("q", chunks)
	assert.Equal(t, 0.6, answer.Confidence)
}

func TestConfidenceCappedAtOne(t *testing.T) {
	// Semantic combined scores can exceed 1 once keyword bonuses apply.
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "A", "a", 12.67),
		ranked(uuid.New(), "B", "b", 11.05),
	}
	answer := NewService().Assemble("q", chunks)
	assert.Equal(t, 1.0, answer.Confidence)
}

func TestConfidenceKeywordPathIsOne(t *testing.T) {
	docID := uuid.New()
	chunks := []types.RankedChunk{
		ranked(docID, "Error 528 Handling", "x", 1.0),
		ranked(docID, "Error 528 Handling", "y", 1.0),
	}
	answer := NewService().Assemble("q", chunks)
	assert.Equal(t, 1.0, answer.Confidence)
}

func TestContextJoinsWithDelimiter(t *testing.T) {
	chunks := []types.RankedChunk{
		ranked(uuid.New(), "A", "first", 1.0),
		ranked(uuid.New(), "B", "second", 1.0),
	}
	assert.Equal(t, "first\n---\nsecond", NewService().Context(chunks))
}

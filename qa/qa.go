// Package qa assembles ranked chunks into an answer: rebuilds the context in
// the order received, extracts the FAQ solution field when present, and
// derives sources and an aggregate confidence.
package qa

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"wikirag/types"

	"github.com/google/uuid"
)

// maxSources caps the deduplicated source list in a response.
const maxSources = 3

var (
	annotationPrefix = regexp.MustCompile(`(?s)^(?:Page title:.*?\n\n)?(?:Content:\s*)?`)
	solutionLabel    = regexp.MustCompile(`(?i)solucao\s*=\s*`)
	nextLabel        = regexp.MustCompile(`\n\s*\w+\s*=`)
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Assemble joins chunk contents in the order received (document order on the
// keyword path, relevance order on the semantic path), strips the indexing
// annotation, and extracts the answer payload.
func (s *Service) Assemble(question string, chunks []types.RankedChunk) types.Answer {
	if len(chunks) == 0 {
		return types.Answer{
			Answer:     "Sorry, I could not find any information about that in the knowledge base.",
			Confidence: 0.0,
			Sources:    []types.Source{},
		}
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = stripAnnotation(chunk.Content)
	}
	cleanContext := strings.TrimSpace(strings.Join(parts, "\n"))

	answer := extractSolution(cleanContext)
	if answer == "" {
		answer = cleanContext
	}
	if answer == "" {
		answer = fmt.Sprintf("I found the document %q but could not extract a clear summary from it.", chunks[0].Meta.Title)
	}

	return types.Answer{
		Answer:     answer,
		Confidence: confidence(chunks),
		Sources:    extractSources(chunks),
	}
}

// Context returns the cleaned, delimiter-joined chunk text for prompting an
// LLM collaborator.
func (s *Service) Context(chunks []types.RankedChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = stripAnnotation(chunk.Content)
	}
	return strings.TrimSpace(strings.Join(parts, "\n---\n"))
}

// stripAnnotation removes the title enrichment added at index time, recovering
// the plaintext chunk for presentation.
func stripAnnotation(content string) string {
	return annotationPrefix.ReplaceAllString(content, "")
}

// extractSolution looks for the FAQ template field `solucao = value`; the
// value runs until the next `name =` label or end of text.
func extractSolution(text string) string {
	loc := solutionLabel.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if next := nextLabel.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest)
}

// extractSources deduplicates chunks by document in first-seen order, then
// sorts by relevance and caps the list.
func extractSources(chunks []types.RankedChunk) []types.Source {
	seen := make(map[uuid.UUID]struct{}, len(chunks))
	sources := make([]types.Source, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.Meta.DocumentID]; ok {
			continue
		}
		seen[chunk.Meta.DocumentID] = struct{}{}
		sources = append(sources, types.Source{
			Title:      chunk.Meta.Title,
			DocumentID: chunk.Meta.DocumentID,
			Relevance:  chunk.Score,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})

	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	return sources
}

// confidence is the mean similarity score across the whole context window,
// capped to 1.0. On the keyword path every score is 1.0 so the mean equals
// the top score.
func confidence(chunks []types.RankedChunk) float64 {
	if len(chunks) == 0 {
		return 0.0
	}
	var sum float64
	for _, chunk := range chunks {
		sum += chunk.Score
	}
	mean := sum / float64(len(chunks))
	if mean > 1.0 {
		mean = 1.0
	}
	return math.Round(mean*100) / 100
}

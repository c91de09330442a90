// Package retriever implements hybrid retrieval over the vector index: a
// keyword-anchored path that recovers whole documents for numeric codes, and a
// semantic path that re-ranks nearest neighbors with query keyword matching.
package retriever

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"wikirag/index"
	"wikirag/model"
	"wikirag/types"

	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	// candidatePool oversizes the semantic candidate set so re-ranking has
	// enough material regardless of the caller's limit.
	candidatePool = 100
	// titleBonus dominates the fuzzy title score when the keyword itself
	// appears in a document title.
	titleBonus = 1000
	// allKeywordsBonus rewards candidates containing every query keyword;
	// large enough to outweigh pure vector similarity.
	allKeywordsBonus = 10
)

var (
	numericCode = regexp.MustCompile(`\d{3,}`)
	wordToken   = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

type Hybrid struct {
	index    index.Indexer
	embedder model.EmbedderInterface
	logger   *slog.Logger
}

func NewHybrid(idx index.Indexer, embedder model.EmbedderInterface) *Hybrid {
	return &Hybrid{
		index:    idx,
		embedder: embedder,
		logger:   slog.Default(),
	}
}

// NumericKeyword extracts a run of 3+ consecutive digits from a query, e.g.
// an error or ticket code. Empty string when the query carries none.
func NumericKeyword(query string) string {
	return numericCode.FindString(query)
}

// Retrieve returns ranked chunks for a query. A non-empty keyword selects the
// keyword-anchored path, otherwise the semantic path runs. Failures on either
// path degrade to an empty result with a logged diagnostic; retrieval never
// returns a hard error.
func (r *Hybrid) Retrieve(ctx context.Context, query string, limit int, keyword string) []types.RankedChunk {
	if keyword != "" {
		return r.keywordSearch(ctx, query, keyword)
	}
	return r.semanticSearch(ctx, query, limit)
}

// keywordSearch locates the single document best matching the keyword and
// returns all of its chunks in reading order. The keyword only picks the
// document; the surrounding context comes along even when it never mentions
// the keyword itself. No match means an empty result, not a semantic
// fallback.
func (r *Hybrid) keywordSearch(ctx context.Context, query, keyword string) []types.RankedChunk {
	all, err := r.index.ScanAll(ctx)
	if err != nil {
		r.logger.Error("keyword search: index scan failed", "error", err)
		return nil
	}

	kw := strings.ToLower(keyword)
	var candidates []types.IndexedChunk
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Content), kw) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	bestScore := math.Inf(-1)
	var bestDoc uuid.UUID
	for _, c := range candidates {
		titleLower := strings.ToLower(c.Meta.Title)
		score := float64(fuzzy.PartialRatio(queryLower, titleLower))
		if strings.Contains(titleLower, kw) {
			score += titleBonus
		}
		if score > bestScore {
			bestScore = score
			bestDoc = c.Meta.DocumentID
		}
	}

	var result []types.RankedChunk
	for _, c := range all {
		if c.Meta.DocumentID == bestDoc {
			result = append(result, types.RankedChunk{
				Content: c.Content,
				Meta:    c.Meta,
				Score:   1.0,
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Meta.ChunkIndex < result[j].Meta.ChunkIndex
	})
	return result
}

// semanticSearch embeds the query, pulls an oversized nearest-neighbor pool
// and re-ranks it: similarity 1/(1+distance), +1 per query keyword found in
// the content, +10 when every keyword is present.
func (r *Hybrid) semanticSearch(ctx context.Context, query string, limit int) []types.RankedChunk {
	vec, err := r.embedder.Embed(query)
	if err != nil {
		r.logger.Error("semantic search: query embedding failed", "error", err)
		return nil
	}

	candidates, err := r.index.Query(ctx, vec, candidatePool)
	if err != nil {
		r.logger.Error("semantic search: index query failed", "error", err)
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	keywords := ExtractKeywords(query)

	scored := make([]types.RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		contentLower := strings.ToLower(c.Content)
		score := 1 / (1 + c.Distance)
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(contentLower, kw) {
				score++
				matched++
			}
		}
		if len(keywords) > 0 && matched == len(keywords) {
			score += allKeywordsBonus
		}
		scored = append(scored, types.RankedChunk{
			Content: c.Content,
			Meta:    c.Meta,
			Score:   score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Score = math.Round(scored[i].Score*100) / 100
	}
	return scored
}

// ExtractKeywords lowercases the query and keeps word tokens longer than 3
// characters. Short common words fall out by length alone; there is no
// stop-word list.
func ExtractKeywords(query string) []string {
	tokens := wordToken.FindAllString(strings.ToLower(query), -1)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if utf8.RuneCountInString(t) > 3 {
			keywords = append(keywords, t)
		}
	}
	return keywords
}

package api

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"wikirag/app/agent"
	"wikirag/chunker"
	"wikirag/index"
	"wikirag/qa"
	"wikirag/retriever"
	"wikirag/store"
	"wikirag/types"
	"wikirag/wiki"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const askChunkLimit = 5

type WikiHandler struct {
	store        store.DBStorer
	index        index.Indexer
	retriever    *retriever.Hybrid
	qa           *qa.Service
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

func NewWikiHandler(dbStore store.DBStorer, idx index.Indexer, hybrid *retriever.Hybrid) *WikiHandler {
	chunkSize, _ := strconv.Atoi(os.Getenv("CHUNK_SIZE"))
	if chunkSize == 0 {
		chunkSize = 500
	}
	chunkOverlap, _ := strconv.Atoi(os.Getenv("CHUNK_OVERLAP"))
	if chunkOverlap == 0 {
		chunkOverlap = 50
	}

	return &WikiHandler{
		store:        dbStore,
		index:        idx,
		retriever:    hybrid,
		qa:           qa.NewService(),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       slog.Default(),
	}
}

// HandleExtract wipes both stores and re-ingests the whole wiki: fetch every
// page, chunk it, index the chunks and persist the relational records. Pages
// failing mid-way are rolled back individually; the rest land in one final
// commit.
func (h *WikiHandler) HandleExtract(c *fiber.Ctx) error {
	var params types.ExtractParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ctx := context.Background()
	extractor := wiki.NewExtractor(params.WikiURL)

	username, password := os.Getenv("WIKI_USER"), os.Getenv("WIKI_PASS")
	if username != "" && password != "" {
		if err := extractor.Login(ctx, username, password); err != nil {
			return ErrUnAuthorized("failed to authenticate with the wiki")
		}
	}

	h.logger.Info("wiping knowledge base before ingest")
	if err := h.store.WipeAll(ctx); err != nil {
		return err
	}
	if err := h.index.Clear(ctx); err != nil {
		return err
	}

	pages, err := extractor.ExtractAll(ctx)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return ErrNotFound(params.WikiURL, "wiki content")
	}

	tx, err := h.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	processed, totalChunks := 0, 0
	for i, page := range pages {
		h.logger.Info("processing page", "n", i+1, "of", len(pages), "title", page.Title)
		n, err := h.ingestPage(ctx, tx, page)
		if err != nil {
			h.logger.Error("page ingest failed, rolled back", "title", page.Title, "error", err)
			continue
		}
		processed++
		totalChunks += n
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	return c.JSON(types.ExtractResponse{
		Message:            "wiki content extracted and indexed",
		DocumentsProcessed: processed,
		TotalChunksCreated: totalChunks,
		TotalPagesFound:    len(pages),
	})
}

// ingestPage runs inside a savepoint so a failure leaves no partial relational
// state for this page behind.
func (h *WikiHandler) ingestPage(ctx context.Context, tx pgx.Tx, page wiki.Page) (int, error) {
	sub, err := tx.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer sub.Rollback(ctx)

	now := time.Now()
	doc := types.Document{
		ID:        uuid.New(),
		Title:     page.Title,
		URL:       page.URL,
		Content:   page.Content,
		CreatedAt: now,
	}
	if err := h.store.SaveDocument(ctx, sub, doc); err != nil {
		return 0, err
	}

	chunks := chunker.Split(page.Content, h.chunkSize, h.chunkOverlap)
	embeddingIDs, err := h.index.Insert(ctx, doc.ID, doc.Title, chunks)
	if err != nil {
		return 0, err
	}

	for i, content := range chunks {
		chunk := types.Chunk{
			ID:        uuid.New(),
			DocID:     doc.ID,
			Index:     i,
			Content:   content,
			CreatedAt: now,
		}
		if i < len(embeddingIDs) {
			chunk.EmbeddingID = uuid.NullUUID{UUID: embeddingIDs[i], Valid: true}
		}
		if err := h.store.SaveChunk(ctx, sub, chunk); err != nil {
			return 0, err
		}
	}

	if err := sub.Commit(ctx); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// HandleAsk answers a question over the knowledge base. A numeric code in the
// question routes retrieval down the keyword-anchored path.
func (h *WikiHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ctx := context.Background()
	keyword := retriever.NumericKeyword(params.Question)
	chunks := h.retriever.Retrieve(ctx, params.Question, askChunkLimit, keyword)

	if len(chunks) == 0 {
		return c.JSON(types.AskResponse{
			Question:          params.Question,
			Answer:            "I could not find any document containing the specific terms of your question. Please try rephrasing it.",
			Confidence:        0.1,
			Sources:           []types.LinkSource{},
			ContextChunksUsed: 0,
		})
	}

	answer := h.qa.Assemble(params.Question, chunks)

	// When an LLM is configured, let it phrase the answer from the assembled
	// context; fall back to the extracted answer on any failure.
	if cfg, err := h.store.GetConfig(ctx); err == nil && cfg.URL != "" && cfg.Model != "" {
		if generated, err := agent.GenerateAnswer(h.qa.Context(chunks), params.Question, cfg); err == nil && generated != "" {
			answer.Answer = generated
		} else if err != nil {
			h.logger.Warn("LLM generation failed, using extracted answer", "error", err)
		}
	}

	titles := make([]string, len(answer.Sources))
	for i, source := range answer.Sources {
		titles[i] = source.Title
	}
	urls, err := h.store.URLsByTitles(ctx, titles)
	if err != nil {
		return err
	}

	linkSources := make([]types.LinkSource, 0, len(answer.Sources))
	for _, source := range answer.Sources {
		url, ok := urls[source.Title]
		if !ok {
			url = "#"
		}
		linkSources = append(linkSources, types.LinkSource{Title: source.Title, URL: url})
	}

	return c.JSON(types.AskResponse{
		Question:          params.Question,
		Answer:            answer.Answer,
		Confidence:        answer.Confidence,
		Sources:           linkSources,
		ContextChunksUsed: len(chunks),
	})
}

// HandleSearch runs semantic-only retrieval and returns the raw ranked
// chunks. No keyword extraction on this endpoint.
func (h *WikiHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}
	if params.Limit == 0 {
		params.Limit = 50
	}

	results := h.retriever.Retrieve(context.Background(), params.Query, params.Limit, "")
	if results == nil {
		results = []types.RankedChunk{}
	}

	return c.JSON(types.SearchResponse{
		Query:   params.Query,
		Results: results,
	})
}

func (h *WikiHandler) HandleStatus(c *fiber.Ctx) error {
	ctx := context.Background()
	docCount, err := h.store.CountDocuments(ctx)
	if err != nil {
		return err
	}
	chunkCount, err := h.store.CountChunks(ctx)
	if err != nil {
		return err
	}

	status := "empty"
	if docCount > 0 {
		status = "ready"
	}
	return c.JSON(types.StatusResponse{
		Documents: docCount,
		Chunks:    chunkCount,
		Status:    status,
	})
}

func (h *WikiHandler) HandleDocuments(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []types.Document{}
	}
	return c.JSON(fiber.Map{"documents": docs})
}

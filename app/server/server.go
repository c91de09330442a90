package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"wikirag/app/api"
	"wikirag/app/middleware"
	"wikirag/index"
	"wikirag/model"
	"wikirag/retriever"
	"wikirag/store"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

// Run constructs the process-wide services once (Postgres pool, embedder,
// vector index, retriever) and hands them to the handlers by reference.
func (s *Server) Run() {
	ctx := context.Background()
	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		log.Fatal("error to connect to Postgres database", err)
		return
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables", err)
		return
	}

	embedder := model.NewEmbedder()

	dim, _ := strconv.Atoi(os.Getenv("EMBEDDING_DIM"))
	if dim == 0 {
		dim = 768
	}
	vectorIndex := index.NewPGVectorIndex(pool.Pool(), embedder, dim)
	if err := vectorIndex.Init(ctx); err != nil {
		log.Fatal("error to create vector index", err)
		return
	}

	hybrid := retriever.NewHybrid(vectorIndex, embedder)

	var (
		app           = fiber.New(config)
		checkHandler  = api.NewCheckHandler()
		wikiHandler   = api.NewWikiHandler(pool, vectorIndex, hybrid)
		configHandler = api.NewConfigHandler(pool)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	app.Use(middleware.PlugStatic("/static"))
	app.Static("/", "./static")

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/extract", wikiHandler.HandleExtract)
	apiv1.Post("/ask", wikiHandler.HandleAsk)
	apiv1.Post("/search", wikiHandler.HandleSearch)
	apiv1.Get("/status", wikiHandler.HandleStatus)
	apiv1.Get("/documents", wikiHandler.HandleDocuments)
	apiv1.Get("/config", configHandler.HandleGetConfig)
	apiv1.Post("/config", configHandler.HandleSetConfig)

	err = app.Listen(s.listenAddr)
	if err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

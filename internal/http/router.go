package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lritter14/askdoc/internal/handlers"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/vectorindex"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Searcher       handlers.Searcher
	Answerer       handlers.Answerer
	Ingester       handlers.BatchIngester
	Embedder       handlers.QueryEmbedder
	Store          store.Store
	Index          vectorindex.Index
	EmbeddingModel string
}

// NewRouter creates the HTTP router.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	searchHandler := handlers.NewSearchHandler(deps.Searcher)
	askHandler := handlers.NewAskHandler(deps.Answerer)
	askStreamHandler := handlers.NewAskStreamHandler(deps.Answerer)
	ingestHandler := handlers.NewIngestHandler(deps.Ingester)
	statusHandler := handlers.NewStatusHandler(deps.Store, deps.Index, deps.EmbeddingModel)
	clearHandler := handlers.NewClearHandler(deps.Store, deps.Index)
	neighborsHandler := handlers.NewNeighborsHandler(deps.Embedder, deps.Index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/ask/stream", askStreamHandler)
		r.Method(http.MethodPost, "/ingest", ingestHandler)
		r.Method(http.MethodGet, "/status", statusHandler)
		r.Method(http.MethodDelete, "/index", clearHandler)
		r.Method(http.MethodPost, "/index/neighbors", neighborsHandler)
	})

	r.Method(http.MethodGet, "/healthz", handlers.NewHealthHandler())

	return r
}

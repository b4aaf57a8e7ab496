package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

type Options func(*Server)

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/extract", s.handleExtract)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/conversations", s.handleConversations)
			r.Get("/conversations/{conversationID}/messages", s.handleMessages)
			r.Get("/conversations/{conversationID}/summary", s.handleSummary)
			r.Post("/memories", s.handleStoreMemory)
			r.Get("/memories", s.handleSearchMemories)
			r.Post("/profile/synthesize", s.handleSynthesize)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/memories", s.handleMemoryAnalytics)
			r.Get("/extractions", s.handleExtractionAnalytics)
			r.Get("/prompts", s.handlePromptAnalytics)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

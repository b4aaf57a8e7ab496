package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/usecase"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = errutil.Handle(r.Context(), goerr.Wrap(err, "failed to write response"), "failed to write response")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(errBadRequest, "invalid JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, usecase.ErrEmptyMessage),
		errors.Is(err, usecase.ErrUnknownPromptType),
		errors.Is(err, usecase.ErrInvalidPrompt):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrConversationNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, goerr.Wrap(errBadRequest, "invalid integer query parameter", goerr.V("key", key), goerr.V("value", v))
	}
	return n, nil
}

type chatRequest struct {
	UserID         string               `json:"user_id"`
	ConversationID model.ConversationID `json:"conversation_id"`
	Message        string               `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(errBadRequest, "user_id is required"), http.StatusBadRequest)
		return
	}

	reply, err := s.uc.Chat.Send(r.Context(), usecase.SendInput{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, reply)
}

type extractRequest struct {
	UserID         string              `json:"user_id"`
	ConversationID string              `json:"conversation_id"`
	Message        string              `json:"message"`
	Context        []model.ContextTurn `json:"conversation_context"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeBody(w, r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result := s.uc.Task.Extract(r.Context(), usecase.ExtractInput{
		Message:        req.Message,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Context:        req.Context,
	})
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	convs, err := s.uc.Chat.Conversations(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	msgs, err := s.uc.Chat.Messages(r.Context(), chi.URLParam(r, "userID"),
		model.ConversationID(chi.URLParam(r, "conversationID")), limit)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusOf(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "max_messages")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	summary := s.uc.Memory.Summarize(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "conversationID"), limit)
	writeJSON(w, r, http.StatusOK, summary)
}

type storeRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"user_message"`
	Response       string `json:"ai_response"`
	MessageType    string `json:"message_type"`
}

func (s *Server) handleStoreMemory(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeBody(w, r, &req); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	result := s.uc.Memory.Store(r.Context(), usecase.StoreInput{
		UserID:         chi.URLParam(r, "userID"),
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Response:       req.Response,
		MessageType:    req.MessageType,
	})
	status := http.StatusCreated
	if !result.Stored {
		status = http.StatusOK
	}
	writeJSON(w, r, status, result)
}

func (s *Server) handleSearchMemories(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	var minSimilarity *float64
	if v := r.URL.Query().Get("min_similarity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(errBadRequest, "invalid min_similarity", goerr.V("value", v)), http.StatusBadRequest)
			return
		}
		minSimilarity = &f
	}

	result := s.uc.Memory.RetrieveRelevant(r.Context(), usecase.RetrieveInput{
		UserID:        chi.URLParam(r, "userID"),
		Query:         r.URL.Query().Get("q"),
		Limit:         limit,
		MinSimilarity: minSimilarity,
	})
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	result := s.uc.Profile.Synthesize(r.Context(), chi.URLParam(r, "userID"))
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleMemoryAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, r, http.StatusOK, s.uc.Memory.Analytics(r.Context(), r.URL.Query().Get("user_id"), days))
}

func (s *Server) handleExtractionAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, r, http.StatusOK, s.uc.Task.ExtractionAnalytics(r.Context(), r.URL.Query().Get("user_id"), days))
}

func (s *Server) handlePromptAnalytics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, r, http.StatusOK, s.uc.Prompt.Analytics(r.Context(), days))
}

package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/coachmem/pkg/controller/http"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/repository/memory"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

func newServer(t *testing.T) *server.Server {
	t.Helper()
	uc := usecase.New(memory.New(), usecase.WithSyncHooks())
	return server.New(uc)
}

func do(t *testing.T, s http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body)).Required()
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newServer(t), http.MethodGet, "/health", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
}

func TestChatFlow(t *testing.T) {
	s := newServer(t)

	w := do(t, s, http.MethodPost, "/api/chat", map[string]string{
		"user_id": "alice",
		"message": "I need to call the dentist tomorrow.",
	})
	gt.Number(t, w.Code).Equal(http.StatusOK).Required()

	var reply model.ChatReply
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply)).Required()
	gt.Value(t, reply.Response).Equal(usecase.FallbackReply)
	gt.A(t, reply.TasksCreated).Length(1)

	w = do(t, s, http.MethodGet, "/api/users/alice/conversations", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var convs struct {
		Conversations []*model.Conversation `json:"conversations"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &convs)).Required()
	gt.A(t, convs.Conversations).Length(1).Required()
	gt.Value(t, convs.Conversations[0].ID).Equal(reply.ConversationID)

	w = do(t, s, http.MethodGet, "/api/users/alice/conversations/"+reply.ConversationID.String()+"/messages", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var msgs struct {
		Messages []*model.ChatMessage `json:"messages"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs)).Required()
	gt.A(t, msgs.Messages).Length(1)

	// another user cannot read the conversation
	w = do(t, s, http.MethodGet, "/api/users/bob/conversations/"+reply.ConversationID.String()+"/messages", nil)
	gt.Number(t, w.Code).Equal(http.StatusNotFound)
}

func TestChat_BadRequests(t *testing.T) {
	s := newServer(t)

	w := do(t, s, http.MethodPost, "/api/chat", map[string]string{"user_id": "alice", "message": "  "})
	gt.Number(t, w.Code).Equal(http.StatusBadRequest)

	w = do(t, s, http.MethodPost, "/api/chat", map[string]string{"message": "hello"})
	gt.Number(t, w.Code).Equal(http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	gt.Number(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestMemories(t *testing.T) {
	s := newServer(t)

	w := do(t, s, http.MethodPost, "/api/users/carol/memories", map[string]string{
		"conversation_id": "c1",
		"user_message":    "My goal is to run a marathon",
		"ai_response":     "Let's plan the training",
	})
	gt.Number(t, w.Code).Equal(http.StatusCreated)

	w = do(t, s, http.MethodGet, "/api/users/carol/memories?q=marathon+goal&min_similarity=0.1", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var result model.RetrieveResult
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &result)).Required()
	gt.A(t, result.Memories).Length(1)

	w = do(t, s, http.MethodGet, "/api/users/carol/memories?limit=abc", nil)
	gt.Number(t, w.Code).Equal(http.StatusBadRequest)

	w = do(t, s, http.MethodGet, "/api/analytics/memories?days=7", nil)
	gt.Number(t, w.Code).Equal(http.StatusOK)
	var stats model.MemoryAnalytics
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats)).Required()
	gt.Number(t, stats.TotalMemories).Equal(1)
}

func TestExtract(t *testing.T) {
	w := do(t, newServer(t), http.MethodPost, "/api/extract", map[string]string{
		"user_id": "dave",
		"message": "Send the invoice, it is urgent!",
	})
	gt.Number(t, w.Code).Equal(http.StatusOK)

	var result model.ExtractionResult
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &result)).Required()
	gt.A(t, result.Tasks).Length(1).Required()
	gt.Value(t, result.Tasks[0].Title).Equal("The invoice, it is urgent")
}

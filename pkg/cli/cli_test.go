package cli_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/cli"
	"github.com/secmon-lab/coachmem/pkg/cli/config"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("COACHMEM_REPOSITORY_BACKEND", "memory")
	t.Setenv("COACHMEM_MODEL_PROVIDER", "none")
	t.Setenv("COACHMEM_EMBEDDING_PROVIDER", "hash")

	var out bytes.Buffer
	app := cli.NewAppForTest(strings.NewReader(stdin), &out)
	err := app.Run(t.Context(), append([]string{"coachmem", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestChatSend_Interactive(t *testing.T) {
	out, err := runApp(t, "I need to call the dentist tomorrow.\n\nHow should I prepare?\n/quit\n",
		"chat", "send", "--user", "alice")
	gt.NoError(t, err).Required()

	gt.Number(t, strings.Count(out, usecase.FallbackReply)).Equal(2)
	gt.S(t, out).Contains("The dentist tomorrow")
	gt.S(t, out).Contains("conversation ")
}

func TestChatSend_JSON(t *testing.T) {
	out, err := runApp(t, "", "chat", "send", "--user", "alice", "--json", "I must finish the report friday")
	gt.NoError(t, err).Required()

	var reply model.ChatReply
	gt.NoError(t, json.Unmarshal([]byte(out), &reply)).Required()
	gt.Value(t, reply.Response).Equal(usecase.FallbackReply)
	gt.Bool(t, reply.MemoryStored).True()
	gt.Value(t, reply.ConversationID).NotEqual(model.ConversationID(""))
	gt.A(t, reply.TasksCreated).Length(1).Required()
	gt.Value(t, reply.TasksCreated[0].Source).Equal(model.TodoSourceChat)
}

func TestChatSend_RequiresUser(t *testing.T) {
	_, err := runApp(t, "", "chat", "send", "hello")
	gt.Value(t, err).NotNil()
}

func TestExtract(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		out, err := runApp(t, "", "extract", "--user", "bob", "Send the invoice, it is urgent!")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("The invoice, it is urgent")
		gt.S(t, out).Contains("high")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := runApp(t, "", "extract", "--user", "bob", "--json", "Nothing to do today")
		gt.NoError(t, err).Required()

		var result model.ExtractionResult
		gt.NoError(t, json.Unmarshal([]byte(out), &result)).Required()
		gt.A(t, result.Tasks).Length(0)
	})

	t.Run("message is required", func(t *testing.T) {
		_, err := runApp(t, "", "extract", "--user", "bob")
		gt.Value(t, err).NotNil()
	})
}

func TestMemory(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		out, err := runApp(t, "", "memory", "store", "--user", "carol", "--response", "Good plan",
			"My goal is to run a marathon, I am motivated")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("stored ")
		gt.S(t, out).Contains("importance:")
	})

	t.Run("empty search is skipped", func(t *testing.T) {
		out, err := runApp(t, "", "memory", "search", "--user", "carol")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("skipped: " + string(model.ReasonEmptyQuery))
	})

	t.Run("cleanup on empty store", func(t *testing.T) {
		out, err := runApp(t, "", "memory", "cleanup", "--days", "30")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("deleted: 0")
	})
}

func TestPrompt(t *testing.T) {
	t.Run("show", func(t *testing.T) {
		out, err := runApp(t, "", "prompt", "show", "coaching_base")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("version: 1")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := runApp(t, "", "prompt", "show", "nope")
		gt.Value(t, err).NotNil()
	})

	t.Run("update from stdin", func(t *testing.T) {
		out, err := runApp(t, "Be a kind coach. {{.UserMessage}}", "prompt", "update", "--file", "-", "--updated-by", "tester", "coaching_base")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("coaching_base updated to version 2")
	})
}

func TestMigrate(t *testing.T) {
	t.Run("memory backend cannot be migrated", func(t *testing.T) {
		_, err := runApp(t, "", "migrate")
		gt.Error(t, err).Is(config.ErrUnknownBackend)
	})

	t.Run("postgres dry run prints the schema", func(t *testing.T) {
		out, err := runApp(t, "", "migrate", "--repository-backend", "postgres", "--dry-run")
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("CREATE TABLE")
	})
}

func TestGetIndexConfig(t *testing.T) {
	cfg := cli.GetIndexConfig("test")
	gt.A(t, cfg.Collections).Length(6).Required()

	names := map[string]fireconf.Collection{}
	for _, c := range cfg.Collections {
		names[c.Name] = c
	}

	memories, ok := names["test_conversation_memories"]
	gt.Bool(t, ok).True()
	gt.A(t, memories.Indexes).Length(4)

	var vector *fireconf.VectorConfig
	for _, idx := range memories.Indexes {
		for _, f := range idx.Fields {
			if f.Vector != nil {
				vector = f.Vector
			}
		}
	}
	gt.Value(t, vector).NotNil().Required()
	gt.Number(t, vector.Dimension).Equal(model.EmbeddingDimension)

	_, ok = names["test_conversations"]
	gt.Bool(t, ok).True()

	gt.NoError(t, cfg.Validate())
	gt.A(t, cli.CollectionNames(cfg)).Length(6).Has("test_chat_messages")
}

func TestMigrate_FirestoreRequiresProject(t *testing.T) {
	t.Setenv("COACHMEM_FIRESTORE_PROJECT_ID", "")
	_, err := runApp(t, "", "migrate", "--repository-backend", "firestore", "--dry-run")
	gt.Error(t, err).Is(config.ErrMissingCredentials)
}

func TestAnalytics(t *testing.T) {
	out, err := runApp(t, "", "analytics", "extraction", "--json", "--days", "7")
	gt.NoError(t, err).Required()

	var stats model.ExtractionAnalytics
	gt.NoError(t, json.Unmarshal([]byte(out), &stats)).Required()
	gt.Number(t, stats.TotalExtractions).Equal(0)

	out, err = runApp(t, "", "analytics", "prompt")
	gt.NoError(t, err).Required()
	gt.S(t, out).Contains("total usage: 0")
}

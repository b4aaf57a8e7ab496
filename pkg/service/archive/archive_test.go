package archive_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/service/archive"
)

func TestObjectName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 7, time.FixedZone("JST", 9*3600))

	t.Run("partitions by UTC day", func(t *testing.T) {
		gt.Value(t, archive.ObjectName("", ts)).
			Equal("2024/03/09/memories-20240309T050506.000000007Z.jsonl")
	})

	t.Run("prepends the prefix", func(t *testing.T) {
		gt.Value(t, archive.ObjectName("coachmem/archive", ts)).
			Equal("coachmem/archive/2024/03/09/memories-20240309T050506.000000007Z.jsonl")
	})
}

func TestEncode(t *testing.T) {
	records := []*model.MemoryRecord{
		{
			ID:              "r1",
			UserID:          "u1",
			ConversationID:  "c1",
			UserMessage:     "hello",
			AIResponse:      "hi",
			Embedding:       []float32{0.5, 0.25},
			ImportanceScore: 0.1,
			Topics:          []types.Topic{types.TopicHealth},
			Emotions:        []types.Emotion{types.EmotionNeutral},
			Timestamp:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:       "r2",
			UserID:   "u2",
			Emotions: []types.Emotion{types.EmotionPositive},
		},
	}

	var buf bytes.Buffer
	gt.NoError(t, archive.Encode(&buf, records)).Required()

	var lines []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		gt.NoError(t, json.Unmarshal(scanner.Bytes(), &line)).Required()
		lines = append(lines, line)
	}

	gt.Array(t, lines).Length(2)
	gt.Value(t, lines[0]["id"]).Equal("r1")
	gt.Value(t, lines[0]["user_message"]).Equal("hello")
	gt.Value(t, lines[0]["embedding"]).Equal([]any{0.5, 0.25})
	gt.Value(t, lines[1]["id"]).Equal("r2")
	_, hasEmbedding := lines[1]["embedding"]
	gt.Bool(t, hasEmbedding).False()
}

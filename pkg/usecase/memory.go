package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

const (
	// DefaultMessageType is stored when the caller does not name one
	DefaultMessageType = "user"

	// DefaultSummaryMessages is the number of records a summary reads
	DefaultSummaryMessages = 20

	summaryTranscriptLines = 20
	summaryTemperature     = 0.3
	summaryMaxTokens       = 400

	retrievalSimilarityWeight = 0.7
	retrievalImportanceWeight = 0.3
)

var summaryPrompt = mustInternalPrompt("conversation_summary")

// PostStoreHook runs after a memory record has been persisted
type PostStoreHook func(ctx context.Context, record *model.MemoryRecord)

// MemoryUseCase stores exchanges as memory records and serves them back
// as ranked context, summaries and analytics
type MemoryUseCase struct {
	repo      interfaces.Repository
	embedder  interfaces.Embedder
	completer interfaces.Completer
	archiver  interfaces.Archiver
	analyzer  *heuristics.Analyzer
	config    Config
	hooks     []PostStoreHook
}

// NewMemoryUseCase creates a MemoryUseCase. completer may be nil, in
// which case summaries degrade.
func NewMemoryUseCase(repo interfaces.Repository, embedder interfaces.Embedder, completer interfaces.Completer, analyzer *heuristics.Analyzer, cfg Config) *MemoryUseCase {
	return &MemoryUseCase{
		repo:      repo,
		embedder:  embedder,
		completer: completer,
		analyzer:  analyzer,
		config:    cfg.withDefaults(),
	}
}

// AddPostStoreHook registers a hook fired after every successful Store
func (uc *MemoryUseCase) AddPostStoreHook(hook PostStoreHook) {
	uc.hooks = append(uc.hooks, hook)
}

// SetArchiver makes Cleanup archive records before deleting them
func (uc *MemoryUseCase) SetArchiver(archiver interfaces.Archiver) {
	uc.archiver = archiver
}

// StoreInput is one exchange to remember
type StoreInput struct {
	UserID         string
	ConversationID string
	Message        string
	Response       string
	MessageType    string
}

// Store scores, tags, embeds and persists an exchange, then fires the
// post-store hooks
func (uc *MemoryUseCase) Store(ctx context.Context, input StoreInput) *model.StoreResult {
	logger := logging.From(ctx)

	messageType := input.MessageType
	if messageType == "" {
		messageType = DefaultMessageType
	}
	combined := input.Message + " " + input.Response

	record := &model.MemoryRecord{
		UserID:          input.UserID,
		ConversationID:  input.ConversationID,
		UserMessage:     input.Message,
		AIResponse:      input.Response,
		MessageType:     messageType,
		ImportanceScore: uc.analyzer.ImportanceScore(input.Message, input.Response),
		Topics:          uc.analyzer.Topics(combined),
		Emotions:        uc.analyzer.Emotions(input.Message),
	}

	embedding, err := uc.embed(ctx, combined)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to embed memory record")
		return &model.StoreResult{Outcome: model.Degraded(model.ReasonEmbeddingFailed, err)}
	}
	record.Embedding = embedding
	record.Timestamp = uc.config.Clock()

	cctx, cancel := uc.config.callContext(ctx)
	created, err := uc.repo.Memory().Create(cctx, record)
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to store memory record", goerr.V("user_id", input.UserID)), "failed to store memory")
		return &model.StoreResult{Outcome: model.Degraded(model.ReasonStorageFailed, err)}
	}

	logger.Debug("memory record stored",
		"user_id", created.UserID,
		"conversation_id", created.ConversationID,
		"importance", created.ImportanceScore,
	)

	for _, hook := range uc.hooks {
		uc.runHook(ctx, hook, created)
	}

	return &model.StoreResult{
		Outcome: model.OK(),
		Stored:  true,
		Record:  created,
	}
}

func (uc *MemoryUseCase) runHook(ctx context.Context, hook PostStoreHook, record *model.MemoryRecord) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in post-store hook", "panic", r, "user_id", record.UserID)
		}
	}()
	hook(ctx, record)
}

func (uc *MemoryUseCase) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	vec, err := uc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text")
	}
	if len(vec) == 0 {
		return nil, goerr.New("embedder returned an empty vector")
	}
	return vec, nil
}

// RetrieveInput is a relevance search over the memories of one user.
// A zero Limit and a nil MinSimilarity take the configured defaults; an
// explicit MinSimilarity of 0 or below disables the similarity floor.
type RetrieveInput struct {
	UserID        string
	Query         string
	Limit         int
	MinSimilarity *float64
}

// RetrieveRelevant ranks the recent records of the user against the
// query by 0.7*similarity + 0.3*importance
func (uc *MemoryUseCase) RetrieveRelevant(ctx context.Context, input RetrieveInput) *model.RetrieveResult {
	result := &model.RetrieveResult{Memories: []*model.ScoredMemory{}}

	if strings.TrimSpace(input.Query) == "" {
		result.Outcome = model.Skipped(model.ReasonEmptyQuery)
		return result
	}

	limit := input.Limit
	if limit <= 0 {
		limit = uc.config.RetrieveLimit
	}
	minSimilarity := uc.config.MinSimilarity
	if input.MinSimilarity != nil {
		minSimilarity = *input.MinSimilarity
	}

	query, err := uc.embed(ctx, input.Query)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to embed retrieval query")
		result.Outcome = model.Degraded(model.ReasonEmbeddingFailed, err)
		return result
	}

	cctx, cancel := uc.config.callContext(ctx)
	records, err := uc.repo.Memory().ListRecentByUser(cctx, input.UserID, time.Time{}, uc.config.RecentWindow)
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to list recent memories", goerr.V("user_id", input.UserID)), "failed to retrieve memories")
		result.Outcome = model.Degraded(model.ReasonStorageFailed, err)
		return result
	}

	result.Memories = rankMemories(query, records, minSimilarity, limit)
	result.Outcome = model.OK()
	return result
}

// rankMemories scores comparable records, drops those below
// minSimilarity and keeps the best limit, highest score first
func rankMemories(query []float32, records []*model.MemoryRecord, minSimilarity float64, limit int) []*model.ScoredMemory {
	scored := make([]*model.ScoredMemory, 0, len(records))
	for _, r := range records {
		if !r.HasEmbedding() {
			continue
		}
		sim, ok := cosineSimilarity(query, r.Embedding)
		if !ok || sim < minSimilarity {
			continue
		}
		scored = append(scored, &model.ScoredMemory{
			Record:     r,
			Similarity: sim,
			Score:      retrievalSimilarityWeight*sim + retrievalImportanceWeight*r.ImportanceScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

type summaryResponse struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	UserObjectives []string `json:"user_objectives"`
	Commitments    []string `json:"commitments"`
	NextActions    []string `json:"next_actions"`
}

// Summarize digests up to maxMessages records of a conversation, oldest
// first. A zero maxMessages reads DefaultSummaryMessages records.
func (uc *MemoryUseCase) Summarize(ctx context.Context, userID, conversationID string, maxMessages int) *model.Summary {
	if maxMessages <= 0 {
		maxMessages = DefaultSummaryMessages
	}
	summary := &model.Summary{
		KeyPoints:      []string{},
		UserObjectives: []string{},
		Commitments:    []string{},
		NextActions:    []string{},
		GeneratedAt:    uc.config.Clock(),
	}

	cctx, cancel := uc.config.callContext(ctx)
	records, err := uc.repo.Memory().ListByConversation(cctx, userID, conversationID, maxMessages)
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to list conversation memories", goerr.V("conversation_id", conversationID)), "failed to summarize conversation")
		summary.Outcome = model.Degraded(model.ReasonStorageFailed, err)
		summary.Summary = "Summary unavailable"
		return summary
	}
	if len(records) == 0 {
		summary.Outcome = model.Skipped(model.ReasonNoHistory)
		summary.Summary = "No conversation history available"
		return summary
	}

	summary.MessageCount = len(records)
	summary.TimeSpan = timeSpan(records)

	if uc.completer == nil {
		summary.Outcome = model.Degraded(model.ReasonCompletionFailed, ErrNoCompleter)
		summary.Summary = "Summary unavailable"
		return summary
	}

	prompt, err := renderPrompt(summaryPrompt, map[string]string{"Transcript": transcript(records)})
	if err != nil {
		summary.Outcome = model.Degraded(model.ReasonInternalError, err)
		summary.Summary = "Summary unavailable"
		return summary
	}

	cctx, cancel = uc.config.callContext(ctx)
	raw, err := uc.completer.Complete(cctx, model.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
		JSON:        true,
	})
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to generate conversation summary")
		summary.Outcome = model.Degraded(model.ReasonCompletionFailed, err)
		summary.Summary = "Summary unavailable"
		return summary
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		logging.From(ctx).Warn("summary is not valid JSON", "error", err, "response", raw)
		summary.Outcome = model.Degraded(model.ReasonMalformedOutput, err)
		summary.Summary = strings.TrimSpace(raw)
		return summary
	}

	summary.Outcome = model.OK()
	summary.Summary = parsed.Summary
	summary.KeyPoints = nonNil(parsed.KeyPoints)
	summary.UserObjectives = nonNil(parsed.UserObjectives)
	summary.Commitments = nonNil(parsed.Commitments)
	summary.NextActions = nonNil(parsed.NextActions)
	return summary
}

// transcript renders the last lines of the exchanges, two lines each
func transcript(records []*model.MemoryRecord) string {
	lines := make([]string, 0, len(records)*2)
	for _, r := range records {
		lines = append(lines, "User: "+r.UserMessage, "Assistant: "+r.AIResponse)
	}
	if len(lines) > summaryTranscriptLines {
		lines = lines[len(lines)-summaryTranscriptLines:]
	}
	return strings.Join(lines, "\n")
}

// timeSpan describes the duration between the first and last record
func timeSpan(records []*model.MemoryRecord) string {
	if len(records) < 2 {
		return "single conversation"
	}

	start, end := records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.Before(start) {
			start = r.Timestamp
		}
		if r.Timestamp.After(end) {
			end = r.Timestamp
		}
	}

	d := end.Sub(start)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d day(s)", int(d/(24*time.Hour)))
	case d > time.Hour:
		return fmt.Sprintf("%d hour(s)", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minute(s)", int(d/time.Minute))
	}
}

// Cleanup deletes records older than daysToKeep days whose importance is
// below the retention threshold. With an archiver configured the records
// are archived first, and an archive failure aborts the deletion.
func (uc *MemoryUseCase) Cleanup(ctx context.Context, daysToKeep int) *model.CleanupResult {
	logger := logging.From(ctx)
	if daysToKeep <= 0 {
		daysToKeep = uc.config.RetentionDays
	}
	cutoff := uc.config.Clock().AddDate(0, 0, -daysToKeep)
	threshold := uc.config.RetentionImportance
	result := &model.CleanupResult{}

	if uc.archiver != nil {
		cctx, cancel := uc.config.callContext(ctx)
		expired, err := uc.repo.Memory().ListExpired(cctx, cutoff, threshold)
		cancel()
		if err != nil {
			_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to list expired memories"), "failed to clean up memories")
			result.Outcome = model.Degraded(model.ReasonStorageFailed, err)
			return result
		}

		if len(expired) > 0 {
			cctx, cancel := uc.config.callContext(ctx)
			err := uc.archiver.Archive(cctx, expired)
			cancel()
			if err != nil {
				_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to archive expired memories", goerr.V("count", len(expired))), "failed to clean up memories")
				result.Outcome = model.Degraded(model.ReasonArchiveFailed, err)
				return result
			}
			result.Archived = len(expired)
		}
	}

	cctx, cancel := uc.config.callContext(ctx)
	deleted, err := uc.repo.Memory().DeleteExpired(cctx, cutoff, threshold)
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to delete expired memories"), "failed to clean up memories")
		result.Outcome = model.Degraded(model.ReasonStorageFailed, err)
		return result
	}

	logger.Info("memory cleanup done",
		"deleted", deleted,
		"archived", result.Archived,
		"cutoff", cutoff,
	)
	result.Outcome = model.OK()
	result.Deleted = deleted
	return result
}

// Analytics aggregates the records of the last days. An empty userID
// covers all users; zero days takes the configured window.
func (uc *MemoryUseCase) Analytics(ctx context.Context, userID string, days int) *model.MemoryAnalytics {
	if days <= 0 {
		days = uc.config.AnalyticsDays
	}
	since := uc.config.Clock().AddDate(0, 0, -days)

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	stats, err := uc.repo.Memory().Stats(cctx, userID, since)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to aggregate memories"), "failed to compute memory analytics")
		return &model.MemoryAnalytics{Outcome: model.Degraded(model.ReasonStorageFailed, err)}
	}
	stats.Outcome = model.OK()
	return stats
}

// extractJSON strips markdown fences and prose around a JSON object
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

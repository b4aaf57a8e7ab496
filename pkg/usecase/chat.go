package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

const (
	conversationTitleRunes = 50

	// FallbackReply is sent when the completion model fails
	FallbackReply = "I'm having technical difficulties right now. Could you rephrase your question?"

	DefaultGoalTitle       = "General objectives"
	DefaultGoalDescription = "Objectives and tasks extracted automatically from conversations"
)

// ChatUseCase runs one chat turn end to end: conversation, memory,
// prompt, reply, task extraction and persistence
type ChatUseCase struct {
	repo      interfaces.Repository
	completer interfaces.Completer
	memory    *MemoryUseCase
	task      *TaskUseCase
	prompt    *PromptUseCase
	config    Config
}

func NewChatUseCase(repo interfaces.Repository, completer interfaces.Completer, memory *MemoryUseCase, task *TaskUseCase, prompt *PromptUseCase, cfg Config) *ChatUseCase {
	return &ChatUseCase{
		repo:      repo,
		completer: completer,
		memory:    memory,
		task:      task,
		prompt:    prompt,
		config:    cfg.withDefaults(),
	}
}

// SendInput is a user message, optionally continuing a conversation
type SendInput struct {
	UserID         string
	ConversationID model.ConversationID
	Message        string
}

// Send handles one user message. Only an unknown conversation, an empty
// message or a failure to create the conversation are errors; every
// later step degrades.
func (uc *ChatUseCase) Send(ctx context.Context, input SendInput) (*model.ChatReply, error) {
	logger := logging.From(ctx)
	if strings.TrimSpace(input.Message) == "" {
		return nil, goerr.Wrap(ErrEmptyMessage, "cannot send message", goerr.V("user_id", input.UserID))
	}

	conv, err := uc.resolveConversation(ctx, input)
	if err != nil {
		return nil, err
	}
	ctx = logging.With(ctx, logger.With("conversation_id", conv.ID.String()))

	retrieved := uc.memory.RetrieveRelevant(ctx, RetrieveInput{
		UserID: input.UserID,
		Query:  input.Message,
		Limit:  uc.config.ChatMemoryLimit,
	})
	memories := retrieved.Records()

	response := uc.reply(ctx, input, memories)

	turns := make([]model.ContextTurn, 0, len(memories))
	for _, m := range memories {
		turns = append(turns, model.ContextTurn{Content: m.UserMessage, IsUser: true})
	}
	extraction := uc.task.Extract(ctx, ExtractInput{
		Message:        input.Message,
		UserID:         input.UserID,
		ConversationID: conv.ID.String(),
		Context:        turns,
	})

	created := []*model.Todo{}
	if len(extraction.Tasks) > 0 && extraction.Confidence > uc.config.AutoTaskConfidence {
		created = uc.createTodos(ctx, input.UserID, conv.ID, extraction.Tasks)
	}

	stored := uc.memory.Store(ctx, StoreInput{
		UserID:         input.UserID,
		ConversationID: conv.ID.String(),
		Message:        input.Message,
		Response:       response,
		MessageType:    DefaultMessageType,
	})

	cctx, cancel := uc.config.callContext(ctx)
	if err := uc.repo.Conversation().IncrementMessageCount(cctx, input.UserID, conv.ID); err != nil {
		logger.Warn("failed to increment message count", "error", err)
	}
	cancel()

	now := uc.config.Clock()
	cctx, cancel = uc.config.callContext(ctx)
	_, err = uc.repo.ChatMessage().Create(cctx, &model.ChatMessage{
		ConversationID: conv.ID,
		UserID:         input.UserID,
		Message:        input.Message,
		Response:       response,
		Timestamp:      now,
	})
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to save chat message"), "failed to save chat message")
	}

	return &model.ChatReply{
		ConversationID:       conv.ID,
		Message:              input.Message,
		Response:             response,
		TasksCreated:         created,
		ExtractionConfidence: extraction.Confidence,
		MemoryStored:         stored.Stored,
		Timestamp:            now,
	}, nil
}

func (uc *ChatUseCase) resolveConversation(ctx context.Context, input SendInput) (*model.Conversation, error) {
	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	if input.ConversationID == "" {
		now := uc.config.Clock()
		conv, err := uc.repo.Conversation().Create(cctx, &model.Conversation{
			UserID:    input.UserID,
			Title:     conversationTitle(input.Message),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("user_id", input.UserID))
		}
		logging.From(ctx).Info("conversation created", "conversation_id", conv.ID.String(), "user_id", input.UserID)
		return conv, nil
	}

	conv, err := uc.repo.Conversation().Get(cctx, input.UserID, input.ConversationID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrConversationNotFound, "conversation not found",
				goerr.V("conversation_id", input.ConversationID),
				goerr.V("user_id", input.UserID))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("conversation_id", input.ConversationID))
	}
	return conv, nil
}

// conversationTitle is the message cut to its first characters
func conversationTitle(message string) string {
	r := []rune(message)
	if len(r) > conversationTitleRunes {
		return string(r[:conversationTitleRunes]) + "..."
	}
	return message
}

func (uc *ChatUseCase) reply(ctx context.Context, input SendInput, memories []*model.MemoryRecord) string {
	logger := logging.From(ctx)
	if uc.completer == nil {
		logger.Warn("no completion model configured, sending fallback reply")
		return FallbackReply
	}

	systemPrompt, err := uc.prompt.Build(ctx, types.PromptTypeCoachingBase, input.UserID, map[string]string{
		"ConversationHistory": historyText(memories),
		"UserMessage":         input.Message,
	})
	if err != nil {
		logger.Warn("failed to build coaching prompt, continuing without it", "error", err)
	}

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	response, err := uc.completer.Complete(cctx, model.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   input.Message,
		Temperature:  uc.config.ChatTemperature,
		MaxTokens:    uc.config.ChatMaxTokens,
	})
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to generate chat reply")
		return FallbackReply
	}
	return response
}

func historyText(memories []*model.MemoryRecord) string {
	if len(memories) == 0 {
		return "No relevant history yet"
	}
	lines := make([]string, 0, len(memories)*2)
	for _, m := range memories {
		lines = append(lines, "User: "+m.UserMessage, "Assistant: "+m.AIResponse)
	}
	return strings.Join(lines, "\n")
}

// createTodos turns extracted tasks into todos. Tasks without a related
// goal go to the first active goal, or to a default goal created once.
func (uc *ChatUseCase) createTodos(ctx context.Context, userID string, convID model.ConversationID, tasks []*model.ExtractedTask) []*model.Todo {
	logger := logging.From(ctx)
	created := []*model.Todo{}

	var fallbackGoal model.GoalID
	for _, task := range tasks {
		goalID := task.RelatedGoalID
		if goalID == "" {
			if fallbackGoal == "" {
				id, err := uc.defaultGoal(ctx, userID)
				if err != nil {
					_ = errutil.Handle(ctx, err, "failed to resolve default goal")
					return created
				}
				fallbackGoal = id
			}
			goalID = fallbackGoal
		}

		cctx, cancel := uc.config.callContext(ctx)
		todo, err := uc.repo.Todo().Create(cctx, &model.Todo{
			UserID:         userID,
			GoalID:         goalID,
			Title:          task.Title,
			Description:    task.Description,
			Priority:       task.Priority,
			Source:         model.TodoSourceChat,
			ConversationID: convID.String(),
			Deadline:       task.EstimatedDate,
			CreatedAt:      uc.config.Clock(),
		})
		cancel()
		if err != nil {
			logger.Warn("failed to create todo", "error", err, "title", task.Title)
			continue
		}
		created = append(created, todo)
	}
	return created
}

func (uc *ChatUseCase) defaultGoal(ctx context.Context, userID string) (model.GoalID, error) {
	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	goals, err := uc.repo.Goal().ListActive(cctx, userID, 1)
	if err != nil {
		return "", goerr.Wrap(err, "failed to list active goals", goerr.V("user_id", userID))
	}
	if len(goals) > 0 {
		return goals[0].ID, nil
	}

	goal, err := uc.repo.Goal().Create(cctx, &model.Goal{
		UserID:      userID,
		Title:       DefaultGoalTitle,
		Description: DefaultGoalDescription,
		Status:      types.GoalStatusActive,
		CreatedAt:   uc.config.Clock(),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create default goal", goerr.V("user_id", userID))
	}
	return goal.ID, nil
}

// Conversations lists the active conversations of a user, most recent first
func (uc *ChatUseCase) Conversations(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	convs, err := uc.repo.Conversation().ListByUser(cctx, userID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V("user_id", userID))
	}
	return convs, nil
}

// Messages lists the messages of a conversation the user owns, oldest first
func (uc *ChatUseCase) Messages(ctx context.Context, userID string, convID model.ConversationID, limit int) ([]*model.ChatMessage, error) {
	if _, err := uc.resolveConversation(ctx, SendInput{UserID: userID, ConversationID: convID}); err != nil {
		return nil, err
	}

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	msgs, err := uc.repo.ChatMessage().ListByConversation(cctx, convID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chat messages", goerr.V("conversation_id", convID))
	}
	return msgs, nil
}

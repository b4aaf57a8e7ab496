package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
)

// Collection base names. A prefix set by WithCollectionPrefix is prepended
// as "<prefix>_<name>".
const (
	CollectionMemories       = "conversation_memories"
	CollectionGoals          = "goals"
	CollectionTodos          = "todos"
	CollectionOnboarding     = "onboarding_profiles"
	CollectionBehavior       = "behavior_profiles"
	CollectionExtractionLogs = "extraction_logs"
	CollectionPrompts        = "prompt_templates"
	CollectionPromptBackups  = "prompt_backups"
	CollectionPromptUsage    = "prompt_usage_logs"
	CollectionConversations  = "conversations"
	CollectionChatMessages   = "chat_messages"
)

// collectionNames resolves collection names with an optional prefix
type collectionNames struct {
	prefix string
}

func (c *collectionNames) name(base string) string {
	return CollectionName(c.prefix, base)
}

// CollectionName returns the collection name of base under prefix
func CollectionName(prefix, base string) string {
	if prefix != "" {
		return prefix + "_" + base
	}
	return base
}

type Firestore struct {
	client        *firestore.Client
	names         *collectionNames
	memory        *memoryRecordRepository
	goal          *goalRepository
	todo          *todoRepository
	profile       *profileRepository
	extractionLog *extractionLogRepository
	prompt        *promptRepository
	conversation  *conversationRepository
	chatMessage   *chatMessageRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates all collections under a prefix, mainly for tests
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.names.prefix = prefix
	}
}

// New connects to the given database. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	names := &collectionNames{}
	f := &Firestore{
		client:        client,
		names:         names,
		memory:        newMemoryRecordRepository(client, names),
		goal:          newGoalRepository(client, names),
		todo:          newTodoRepository(client, names),
		profile:       newProfileRepository(client, names),
		extractionLog: newExtractionLogRepository(client, names),
		prompt:        newPromptRepository(client, names),
		conversation:  newConversationRepository(client, names),
		chatMessage:   newChatMessageRepository(client, names),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Memory() interfaces.MemoryRecordRepository {
	return f.memory
}

func (f *Firestore) Goal() interfaces.GoalRepository {
	return f.goal
}

func (f *Firestore) Todo() interfaces.TodoRepository {
	return f.todo
}

func (f *Firestore) Profile() interfaces.ProfileRepository {
	return f.profile
}

func (f *Firestore) ExtractionLog() interfaces.ExtractionLogRepository {
	return f.extractionLog
}

func (f *Firestore) Prompt() interfaces.PromptRepository {
	return f.prompt
}

func (f *Firestore) Conversation() interfaces.ConversationRepository {
	return f.conversation
}

func (f *Firestore) ChatMessage() interfaces.ChatMessageRepository {
	return f.chatMessage
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

package memory

import (
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
)

// Memory is the in-process backend used for development and tests
type Memory struct {
	memory        *memoryRecordRepository
	goal          *goalRepository
	todo          *todoRepository
	profile       *profileRepository
	extractionLog *extractionLogRepository
	prompt        *promptRepository
	conversation  *conversationRepository
	chatMessage   *chatMessageRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		memory:        newMemoryRecordRepository(),
		goal:          newGoalRepository(),
		todo:          newTodoRepository(),
		profile:       newProfileRepository(),
		extractionLog: newExtractionLogRepository(),
		prompt:        newPromptRepository(),
		conversation:  newConversationRepository(),
		chatMessage:   newChatMessageRepository(),
	}
}

func (m *Memory) Memory() interfaces.MemoryRecordRepository {
	return m.memory
}

func (m *Memory) Goal() interfaces.GoalRepository {
	return m.goal
}

func (m *Memory) Todo() interfaces.TodoRepository {
	return m.todo
}

func (m *Memory) Profile() interfaces.ProfileRepository {
	return m.profile
}

func (m *Memory) ExtractionLog() interfaces.ExtractionLogRepository {
	return m.extractionLog
}

func (m *Memory) Prompt() interfaces.PromptRepository {
	return m.prompt
}

func (m *Memory) Conversation() interfaces.ConversationRepository {
	return m.conversation
}

func (m *Memory) ChatMessage() interfaces.ChatMessageRepository {
	return m.chatMessage
}

func (m *Memory) Close() error {
	return nil
}

package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

func runConversationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Get is restricted to the owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("owner")

		conv, err := repo.Conversation().Create(ctx, &model.Conversation{UserID: userID, Title: "Startup plans", IsActive: true})
		gt.NoError(t, err).Required()
		gt.String(t, string(conv.ID)).NotEqual("")

		got, err := repo.Conversation().Get(ctx, userID, conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Startup plans")

		_, err = repo.Conversation().Get(ctx, uniqueUser("stranger"), conv.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		_, err = repo.Conversation().Get(ctx, userID, model.NewConversationID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("inactive conversations are hidden", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("inactive")

		conv, err := repo.Conversation().Create(ctx, &model.Conversation{UserID: userID, Title: "Archived", IsActive: false})
		gt.NoError(t, err).Required()

		_, err = repo.Conversation().Get(ctx, userID, conv.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		list, err := repo.Conversation().ListByUser(ctx, userID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("IncrementMessageCount bumps the counter", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("counter")

		conv, err := repo.Conversation().Create(ctx, &model.Conversation{UserID: userID, Title: "Counting", IsActive: true})
		gt.NoError(t, err).Required()

		for range 3 {
			gt.NoError(t, repo.Conversation().IncrementMessageCount(ctx, userID, conv.ID)).Required()
		}

		got, err := repo.Conversation().Get(ctx, userID, conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.MessageCount).Equal(int64(3))
		gt.Value(t, got.LastMessageAt).NotNil()

		err = repo.Conversation().IncrementMessageCount(ctx, uniqueUser("stranger"), conv.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("chat messages are listed oldest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("chat")

		conv, err := repo.Conversation().Create(ctx, &model.Conversation{UserID: userID, Title: "Chat", IsActive: true})
		gt.NoError(t, err).Required()

		for _, msg := range []string{"one", "two", "three"} {
			_, err := repo.ChatMessage().Create(ctx, &model.ChatMessage{
				ConversationID: conv.ID,
				UserID:         userID,
				Message:        msg,
				Response:       "ack " + msg,
			})
			gt.NoError(t, err).Required()
		}

		msgs, err := repo.ChatMessage().ListByConversation(ctx, conv.ID, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(3)
		gt.Value(t, msgs[0].Message).Equal("one")
		gt.Value(t, msgs[2].Response).Equal("ack three")
	})
}

func TestConversationRepository(t *testing.T) {
	runAllBackends(t, runConversationRepositoryTest)
}

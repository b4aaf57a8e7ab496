package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type conversationDoc struct {
	ID            model.ConversationID `firestore:"ID"`
	UserID        string               `firestore:"UserID"`
	Title         string               `firestore:"Title"`
	IsActive      bool                 `firestore:"IsActive"`
	MessageCount  int64                `firestore:"MessageCount"`
	LastMessageAt *time.Time           `firestore:"LastMessageAt"`
	CreatedAt     time.Time            `firestore:"CreatedAt"`
	UpdatedAt     time.Time            `firestore:"UpdatedAt"`
}

func toConversationDoc(c *model.Conversation) *conversationDoc {
	return &conversationDoc{
		ID:            c.ID,
		UserID:        c.UserID,
		Title:         c.Title,
		IsActive:      c.IsActive,
		MessageCount:  c.MessageCount,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromConversationDoc(d *conversationDoc) *model.Conversation {
	return &model.Conversation{
		ID:            d.ID,
		UserID:        d.UserID,
		Title:         d.Title,
		IsActive:      d.IsActive,
		MessageCount:  d.MessageCount,
		LastMessageAt: d.LastMessageAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type conversationRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newConversationRepository(client *firestore.Client, names *collectionNames) *conversationRepository {
	return &conversationRepository{client: client, names: names}
}

func (r *conversationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionConversations))
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	now := time.Now().UTC()
	created := *conv
	if created.ID == "" {
		created.ID = model.NewConversationID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toConversationDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *conversationRepository) Get(ctx context.Context, userID string, id model.ConversationID) (*model.Conversation, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}

	var d conversationDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal conversation", goerr.V("id", id))
	}
	if d.UserID != userID || !d.IsActive {
		return nil, goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id), goerr.V("userID", userID))
	}

	return fromConversationDoc(&d), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	q := r.collection().
		Where("UserID", "==", userID).
		Where("IsActive", "==", true).
		OrderBy("UpdatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Conversation, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations", goerr.V("userID", userID))
		}

		var d conversationDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal conversation", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, fromConversationDoc(&d))
	}
	return result, nil
}

func (r *conversationRepository) IncrementMessageCount(ctx context.Context, userID string, id model.ConversationID) error {
	ref := r.collection().Doc(string(id))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "conversation not found")
			}
			return goerr.Wrap(err, "failed to get conversation")
		}

		owner, err := doc.DataAt("UserID")
		if err != nil {
			return goerr.Wrap(err, "failed to get conversation owner")
		}
		if owner != userID {
			return goerr.Wrap(ErrNotFound, "conversation not found")
		}

		now := time.Now().UTC()
		return tx.Update(ref, []firestore.Update{
			{Path: "MessageCount", Value: firestore.Increment(1)},
			{Path: "LastMessageAt", Value: now},
			{Path: "UpdatedAt", Value: now},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to increment message count", goerr.V("id", id), goerr.V("userID", userID))
	}
	return nil
}

type chatMessageDoc struct {
	ID             model.ChatMessageID  `firestore:"ID"`
	ConversationID model.ConversationID `firestore:"ConversationID"`
	UserID         string               `firestore:"UserID"`
	Message        string               `firestore:"Message"`
	Response       string               `firestore:"Response"`
	Timestamp      time.Time            `firestore:"Timestamp"`
}

type chatMessageRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newChatMessageRepository(client *firestore.Client, names *collectionNames) *chatMessageRepository {
	return &chatMessageRepository{client: client, names: names}
}

func (r *chatMessageRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionChatMessages))
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	created := *msg
	if created.ID == "" {
		created.ID = model.NewChatMessageID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	d := &chatMessageDoc{
		ID:             created.ID,
		ConversationID: created.ConversationID,
		UserID:         created.UserID,
		Message:        created.Message,
		Response:       created.Response,
		Timestamp:      created.Timestamp,
	}
	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, d); err != nil {
		return nil, goerr.Wrap(err, "failed to create chat message", goerr.V("conversationID", created.ConversationID))
	}
	return &created, nil
}

func (r *chatMessageRepository) ListByConversation(ctx context.Context, id model.ConversationID, limit int) ([]*model.ChatMessage, error) {
	q := r.collection().
		Where("ConversationID", "==", string(id)).
		OrderBy("Timestamp", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	result := make([]*model.ChatMessage, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chat messages", goerr.V("conversationID", id))
		}

		var d chatMessageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chat message", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, &model.ChatMessage{
			ID:             d.ID,
			ConversationID: d.ConversationID,
			UserID:         d.UserID,
			Message:        d.Message,
			Response:       d.Response,
			Timestamp:      d.Timestamp,
		})
	}
	return result, nil
}

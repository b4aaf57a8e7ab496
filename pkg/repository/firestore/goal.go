package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type goalDoc struct {
	ID          model.GoalID `firestore:"ID"`
	UserID      string       `firestore:"UserID"`
	Title       string       `firestore:"Title"`
	Description string       `firestore:"Description"`
	Status      string       `firestore:"Status"`
	CreatedAt   time.Time    `firestore:"CreatedAt"`
}

func toGoalDoc(g *model.Goal) *goalDoc {
	return &goalDoc{
		ID:          g.ID,
		UserID:      g.UserID,
		Title:       g.Title,
		Description: g.Description,
		Status:      string(g.Status),
		CreatedAt:   g.CreatedAt,
	}
}

func fromGoalDoc(d *goalDoc) *model.Goal {
	return &model.Goal{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Status:      types.GoalStatus(d.Status),
		CreatedAt:   d.CreatedAt,
	}
}

type goalRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newGoalRepository(client *firestore.Client, names *collectionNames) *goalRepository {
	return &goalRepository{client: client, names: names}
}

func (r *goalRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionGoals))
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) (*model.Goal, error) {
	created := *goal
	if created.ID == "" {
		created.ID = model.NewGoalID()
	}
	if created.Status == "" {
		created.Status = types.GoalStatusActive
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toGoalDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create goal", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *goalRepository) Get(ctx context.Context, userID string, id model.GoalID) (*model.Goal, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "goal not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get goal", goerr.V("id", id))
	}

	var d goalDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal goal", goerr.V("id", id))
	}
	if d.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "goal not found", goerr.V("id", id), goerr.V("userID", userID))
	}

	return fromGoalDoc(&d), nil
}

func (r *goalRepository) ListActive(ctx context.Context, userID string, limit int) ([]*model.Goal, error) {
	q := r.collection().
		Where("UserID", "==", userID).
		Where("Status", "==", string(types.GoalStatusActive)).
		OrderBy("CreatedAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	goals := make([]*model.Goal, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate goals", goerr.V("userID", userID))
		}

		var d goalDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal goal", goerr.V("docID", doc.Ref.ID))
		}
		goals = append(goals, fromGoalDoc(&d))
	}
	return goals, nil
}

type todoDoc struct {
	ID             model.TodoID `firestore:"ID"`
	UserID         string       `firestore:"UserID"`
	GoalID         model.GoalID `firestore:"GoalID"`
	Title          string       `firestore:"Title"`
	Description    string       `firestore:"Description"`
	Priority       string       `firestore:"Priority"`
	Source         string       `firestore:"Source"`
	ConversationID string       `firestore:"ConversationID"`
	Deadline       string       `firestore:"Deadline,omitempty"`
	CreatedAt      time.Time    `firestore:"CreatedAt"`
}

func toTodoDoc(t *model.Todo) *todoDoc {
	doc := &todoDoc{
		ID:             t.ID,
		UserID:         t.UserID,
		GoalID:         t.GoalID,
		Title:          t.Title,
		Description:    t.Description,
		Priority:       string(t.Priority),
		Source:         t.Source,
		ConversationID: t.ConversationID,
		CreatedAt:      t.CreatedAt,
	}
	if t.Deadline != nil {
		doc.Deadline = t.Deadline.String()
	}
	return doc
}

func fromTodoDoc(d *todoDoc) (*model.Todo, error) {
	t := &model.Todo{
		ID:             d.ID,
		UserID:         d.UserID,
		GoalID:         d.GoalID,
		Title:          d.Title,
		Description:    d.Description,
		Priority:       types.Priority(d.Priority),
		Source:         d.Source,
		ConversationID: d.ConversationID,
		CreatedAt:      d.CreatedAt,
	}
	if d.Deadline != "" {
		deadline, err := model.ParseDate(d.Deadline)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid todo deadline", goerr.V("id", d.ID))
		}
		t.Deadline = &deadline
	}
	return t, nil
}

type todoRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newTodoRepository(client *firestore.Client, names *collectionNames) *todoRepository {
	return &todoRepository{client: client, names: names}
}

func (r *todoRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionTodos))
}

func (r *todoRepository) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	created := *todo
	if created.ID == "" {
		created.ID = model.NewTodoID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toTodoDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create todo", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *todoRepository) ListByUser(ctx context.Context, userID string) ([]*model.Todo, error) {
	iter := r.collection().Where("UserID", "==", userID).Documents(ctx)
	defer iter.Stop()

	todos := make([]*model.Todo, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate todos", goerr.V("userID", userID))
		}

		var d todoDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal todo", goerr.V("docID", doc.Ref.ID))
		}
		t, err := fromTodoDoc(&d)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}

	sort.Slice(todos, func(i, j int) bool {
		return todos[i].CreatedAt.Before(todos[j].CreatedAt)
	})
	return todos, nil
}

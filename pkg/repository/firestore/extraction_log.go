package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type extractedTaskDoc struct {
	Title            string  `firestore:"Title"`
	Description      string  `firestore:"Description"`
	Priority         string  `firestore:"Priority"`
	EstimatedDate    string  `firestore:"EstimatedDate,omitempty"`
	Confidence       float64 `firestore:"Confidence"`
	ExtractionMethod string  `firestore:"ExtractionMethod"`
	RelatedGoalID    string  `firestore:"RelatedGoalID,omitempty"`
	RelatedGoalTitle string  `firestore:"RelatedGoalTitle,omitempty"`
	Category         string  `firestore:"Category,omitempty"`
}

type extractionLogDoc struct {
	ID              model.ExtractionLogID `firestore:"ID"`
	UserID          string                `firestore:"UserID"`
	ConversationID  string                `firestore:"ConversationID"`
	OriginalMessage string                `firestore:"OriginalMessage"`
	TasksExtracted  int                   `firestore:"TasksExtracted"`
	Confidence      float64               `firestore:"Confidence"`
	Tasks           []extractedTaskDoc    `firestore:"Tasks"`
	Timestamp       time.Time             `firestore:"Timestamp"`
}

func toExtractionLogDoc(l *model.ExtractionLog) *extractionLogDoc {
	doc := &extractionLogDoc{
		ID:              l.ID,
		UserID:          l.UserID,
		ConversationID:  l.ConversationID,
		OriginalMessage: l.OriginalMessage,
		TasksExtracted:  l.TasksExtracted,
		Confidence:      l.Confidence,
		Tasks:           make([]extractedTaskDoc, 0, len(l.Tasks)),
		Timestamp:       l.Timestamp,
	}
	for _, t := range l.Tasks {
		td := extractedTaskDoc{
			Title:            t.Title,
			Description:      t.Description,
			Priority:         string(t.Priority),
			Confidence:       t.Confidence,
			ExtractionMethod: string(t.ExtractionMethod),
			RelatedGoalID:    string(t.RelatedGoalID),
			RelatedGoalTitle: t.RelatedGoalTitle,
			Category:         t.Category,
		}
		if t.EstimatedDate != nil {
			td.EstimatedDate = t.EstimatedDate.String()
		}
		doc.Tasks = append(doc.Tasks, td)
	}
	return doc
}

type extractionLogRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newExtractionLogRepository(client *firestore.Client, names *collectionNames) *extractionLogRepository {
	return &extractionLogRepository{client: client, names: names}
}

func (r *extractionLogRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionExtractionLogs))
}

func (r *extractionLogRepository) Create(ctx context.Context, log *model.ExtractionLog) error {
	created := *log
	if created.ID == "" {
		created.ID = model.NewExtractionLogID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toExtractionLogDoc(&created)); err != nil {
		return goerr.Wrap(err, "failed to create extraction log", goerr.V("userID", created.UserID))
	}
	return nil
}

func (r *extractionLogRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.ExtractionAnalytics, error) {
	q := r.collection().Where("Timestamp", ">=", since)
	if userID != "" {
		q = r.collection().Where("UserID", "==", userID).Where("Timestamp", ">=", since)
	}

	iter := q.Select("UserID", "TasksExtracted", "Confidence").Documents(ctx)
	defer iter.Stop()

	users := make(map[string]struct{})
	stats := &model.ExtractionAnalytics{}
	var confidenceSum float64

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate extraction logs")
		}

		var d extractionLogDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal extraction log", goerr.V("docID", doc.Ref.ID))
		}

		stats.TotalExtractions++
		stats.TotalTasksFound += d.TasksExtracted
		confidenceSum += d.Confidence
		users[d.UserID] = struct{}{}
	}

	stats.UniqueUsersCount = len(users)
	if stats.TotalExtractions > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.TotalExtractions)
	}
	return stats, nil
}

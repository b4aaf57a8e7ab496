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
)

type promptTemplateDoc struct {
	Type      string    `firestore:"Type"`
	Content   string    `firestore:"Content"`
	Version   int       `firestore:"Version"`
	UpdatedBy string    `firestore:"UpdatedBy"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

type promptBackupDoc struct {
	Type       string    `firestore:"Type"`
	OldPrompt  string    `firestore:"OldPrompt"`
	NewPrompt  string    `firestore:"NewPrompt"`
	OldVersion int       `firestore:"OldVersion"`
	UpdatedBy  string    `firestore:"UpdatedBy"`
	UpdatedAt  time.Time `firestore:"UpdatedAt"`
}

type promptUsageDoc struct {
	Type       string    `firestore:"Type"`
	UserID     string    `firestore:"UserID"`
	Timestamp  time.Time `firestore:"Timestamp"`
	UsageCount int       `firestore:"UsageCount"`
}

type promptRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newPromptRepository(client *firestore.Client, names *collectionNames) *promptRepository {
	return &promptRepository{client: client, names: names}
}

func (r *promptRepository) templates() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionPrompts))
}

func (r *promptRepository) backups() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionPromptBackups))
}

func (r *promptRepository) usage() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionPromptUsage))
}

func (r *promptRepository) ListTemplates(ctx context.Context) ([]*model.PromptTemplate, error) {
	iter := r.templates().Documents(ctx)
	defer iter.Stop()

	result := make([]*model.PromptTemplate, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate prompt templates")
		}

		var d promptTemplateDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal prompt template", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, &model.PromptTemplate{
			Type:      types.PromptType(d.Type),
			Content:   d.Content,
			Version:   d.Version,
			UpdatedBy: d.UpdatedBy,
			UpdatedAt: d.UpdatedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result, nil
}

func (r *promptRepository) PutTemplate(ctx context.Context, template *model.PromptTemplate) error {
	d := &promptTemplateDoc{
		Type:      string(template.Type),
		Content:   template.Content,
		Version:   template.Version,
		UpdatedBy: template.UpdatedBy,
		UpdatedAt: template.UpdatedAt,
	}
	if _, err := r.templates().Doc(string(template.Type)).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put prompt template", goerr.V("type", template.Type))
	}
	return nil
}

func (r *promptRepository) PutBackup(ctx context.Context, backup *model.PromptBackup) error {
	d := &promptBackupDoc{
		Type:       string(backup.Type),
		OldPrompt:  backup.OldPrompt,
		NewPrompt:  backup.NewPrompt,
		OldVersion: backup.OldVersion,
		UpdatedBy:  backup.UpdatedBy,
		UpdatedAt:  backup.UpdatedAt,
	}
	if _, err := r.backups().NewDoc().Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put prompt backup", goerr.V("type", backup.Type))
	}
	return nil
}

func (r *promptRepository) ListBackups(ctx context.Context, promptType types.PromptType) ([]*model.PromptBackup, error) {
	iter := r.backups().
		Where("Type", "==", string(promptType)).
		OrderBy("UpdatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.PromptBackup, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate prompt backups", goerr.V("type", promptType))
		}

		var d promptBackupDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal prompt backup", goerr.V("docID", doc.Ref.ID))
		}
		result = append(result, &model.PromptBackup{
			Type:       types.PromptType(d.Type),
			OldPrompt:  d.OldPrompt,
			NewPrompt:  d.NewPrompt,
			OldVersion: d.OldVersion,
			UpdatedBy:  d.UpdatedBy,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	return result, nil
}

func (r *promptRepository) LogUsage(ctx context.Context, usage *model.PromptUsage) error {
	d := &promptUsageDoc{
		Type:       string(usage.Type),
		UserID:     usage.UserID,
		Timestamp:  usage.Timestamp,
		UsageCount: usage.UsageCount,
	}
	if _, err := r.usage().NewDoc().Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to log prompt usage", goerr.V("type", usage.Type))
	}
	return nil
}

func (r *promptRepository) UsageStats(ctx context.Context, since time.Time) ([]*model.PromptTypeUsage, error) {
	iter := r.usage().Where("Timestamp", ">=", since).Documents(ctx)
	defer iter.Stop()

	counts := make(map[types.PromptType]int)
	users := make(map[types.PromptType]map[string]struct{})
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate prompt usage logs")
		}

		var d promptUsageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal prompt usage log", goerr.V("docID", doc.Ref.ID))
		}

		t := types.PromptType(d.Type)
		counts[t] += d.UsageCount
		if users[t] == nil {
			users[t] = make(map[string]struct{})
		}
		users[t][d.UserID] = struct{}{}
	}

	result := make([]*model.PromptTypeUsage, 0, len(counts))
	for t, c := range counts {
		result = append(result, &model.PromptTypeUsage{
			Type:             t,
			UsageCount:       c,
			UniqueUsersCount: len(users[t]),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Type < result[j].Type
	})
	return result, nil
}

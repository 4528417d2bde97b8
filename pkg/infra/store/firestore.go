package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the Firestore collection holding chat snapshots
const DefaultCollection = "chats"

// Firestore stores one document per chat
type Firestore struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.ChatRepository = (*Firestore)(nil)

// NewFirestore creates a Firestore repository. databaseID may be empty for the default database.
func NewFirestore(ctx context.Context, projectID, databaseID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}
	return &Firestore{client: client, collection: collection}, nil
}

func (f *Firestore) doc(chatID string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(chatID)
}

func (f *Firestore) Save(ctx context.Context, snap *model.ChatSnapshot) error {
	if _, err := f.doc(snap.ChatID).Set(ctx, snap); err != nil {
		return goerr.Wrap(err, "failed to save snapshot document", goerr.V("chat_id", snap.ChatID))
	}
	return nil
}

func (f *Firestore) Load(ctx context.Context, chatID string) (*model.ChatSnapshot, error) {
	doc, err := f.doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "snapshot document does not exist", goerr.V("chat_id", chatID))
		}
		return nil, goerr.Wrap(err, "failed to get snapshot document", goerr.V("chat_id", chatID))
	}

	var snap model.ChatSnapshot
	if err := doc.DataTo(&snap); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot document", goerr.V("chat_id", chatID))
	}
	return &snap, nil
}

func (f *Firestore) Delete(ctx context.Context, chatID string) error {
	if _, err := f.doc(chatID).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "snapshot document does not exist", goerr.V("chat_id", chatID))
		}
		return goerr.Wrap(err, "failed to delete snapshot document", goerr.V("chat_id", chatID))
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

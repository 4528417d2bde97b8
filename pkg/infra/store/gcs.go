package store

import (
	"bytes"
	"context"
	"errors"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/snapshot"
	"google.golang.org/api/option"
)

// GCS stores snapshots as JSON objects in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ChatRepository = (*GCS)(nil)

// NewGCS creates a Cloud Storage repository. Objects are named <prefix>/<chat_id>.json.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(chatID string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, chatID+".json"))
}

func (g *GCS) Save(ctx context.Context, snap *model.ChatSnapshot) error {
	obj := g.object(snap.ChatID)

	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, snapshot.FormatJSON, snap); err != nil {
		return goerr.Wrap(err, "failed to encode snapshot object", goerr.V("object", obj.ObjectName()))
	}

	// cancelling before Close discards the upload and keeps the previous object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(buf.Bytes()); err != nil {
		cancel()
		_ = w.Close()
		return goerr.Wrap(err, "failed to write snapshot object", goerr.V("object", obj.ObjectName()))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload snapshot object",
			goerr.V("bucket", g.bucket), goerr.V("object", obj.ObjectName()))
	}
	return nil
}

func (g *GCS) Load(ctx context.Context, chatID string) (*model.ChatSnapshot, error) {
	obj := g.object(chatID)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "snapshot object does not exist",
				goerr.V("bucket", g.bucket), goerr.V("object", obj.ObjectName()))
		}
		return nil, goerr.Wrap(err, "failed to open snapshot object", goerr.V("object", obj.ObjectName()))
	}
	defer r.Close()

	return snapshot.Decode(r, snapshot.FormatJSON)
}

func (g *GCS) Delete(ctx context.Context, chatID string) error {
	obj := g.object(chatID)
	if err := obj.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return goerr.Wrap(model.ErrNotFound, "snapshot object does not exist", goerr.V("object", obj.ObjectName()))
		}
		return goerr.Wrap(err, "failed to delete snapshot object", goerr.V("object", obj.ObjectName()))
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

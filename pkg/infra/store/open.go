package store

import (
	"context"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/snapshot"
	"google.golang.org/api/option"
)

// Open creates a repository from a URI:
//
//	memory://                                   in-process map (default)
//	file:///path/to/dir?format=toml             one file per chat
//	gs://bucket/prefix                          Cloud Storage objects
//	firestore://project/database?collection=x   Firestore documents
//
// A URI without scheme is treated as a directory.
func Open(ctx context.Context, uri string, opts ...option.ClientOption) (interfaces.ChatRepository, error) {
	if uri == "" {
		return NewMemory(), nil
	}
	if !strings.Contains(uri, "://") {
		return NewFile(uri, snapshot.FormatJSON)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid store uri", goerr.V("uri", uri))
	}

	switch u.Scheme {
	case "memory":
		return NewMemory(), nil

	case "file":
		dir := u.Path
		if u.Host != "" {
			// file://relative/dir
			dir = u.Host + u.Path
		}
		format := snapshot.Format(u.Query().Get("format"))
		switch format {
		case "", snapshot.FormatJSON, snapshot.FormatTOML, snapshot.FormatYAML:
		default:
			return nil, goerr.Wrap(model.ErrUnsupportedFormat, "invalid file store format", goerr.V("format", format))
		}
		return NewFile(dir, format)

	case "gs":
		if u.Host == "" {
			return nil, goerr.Wrap(model.ErrInvalidConfig, "bucket is required", goerr.V("uri", uri))
		}
		return NewGCS(ctx, u.Host, strings.Trim(u.Path, "/"), opts...)

	case "firestore":
		if u.Host == "" {
			return nil, goerr.Wrap(model.ErrInvalidConfig, "project id is required", goerr.V("uri", uri))
		}
		return NewFirestore(ctx, u.Host, strings.Trim(u.Path, "/"), u.Query().Get("collection"), opts...)

	default:
		return nil, goerr.Wrap(model.ErrInvalidConfig, "unsupported store scheme", goerr.V("scheme", u.Scheme))
	}
}

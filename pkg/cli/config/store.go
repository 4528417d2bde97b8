package config

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/infra/store"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Store holds the snapshot repository settings
type Store struct {
	URI            string
	GCPCredentials string
}

// Flags returns CLI flags for store configuration
func (c *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Snapshot store URI (memory://, file://dir, gs://bucket/prefix, firestore://project/database)",
			Value:       "memory://",
			Destination: &c.URI,
			Sources:     cli.EnvVars("WEBCHATTER_STORE"),
		},
		&cli.StringFlag{
			Name:        "gcp-credentials",
			Usage:       "Service account key file for gs:// and firestore:// stores",
			Destination: &c.GCPCredentials,
			Sources:     cli.EnvVars("WEBCHATTER_GCP_CREDENTIALS"),
		},
	}
}

// Open creates the repository. The caller closes it.
func (c *Store) Open(ctx context.Context) (interfaces.ChatRepository, error) {
	var opts []option.ClientOption
	if c.GCPCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(c.GCPCredentials))
	}

	repo, err := store.Open(ctx, c.URI, opts...)
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Debug("Snapshot store opened", "uri", c.URI)
	return repo, nil
}

package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/webchatter/pkg/cli/config"
	"github.com/m-mizutani/webchatter/pkg/infra/backend"
	"github.com/m-mizutani/webchatter/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// chatterConfig bundles the flags every backend-facing command needs
type chatterConfig struct {
	backend config.Backend
	store   config.Store
}

func (x *chatterConfig) Flags() []cli.Flag {
	return append(x.backend.Flags(), x.store.Flags()...)
}

// chatterEnv is what a command works with once flags are parsed
type chatterEnv struct {
	client  *backend.Client
	chatter *usecase.Chatter
	close   func()
}

func (x *chatterConfig) setup(ctx context.Context) (*chatterEnv, error) {
	client, err := x.backend.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	repo, err := x.store.Open(ctx)
	if err != nil {
		return nil, err
	}

	chatter := usecase.NewChatter(client,
		usecase.WithRepository(repo),
		usecase.WithModel(x.backend.Model),
		usecase.WithHistoryDisabled(x.backend.HistoryDisabled),
		usecase.WithTimezoneOffset(config.TimezoneOffsetMin(time.Now())),
	)

	return &chatterEnv{
		client:  client,
		chatter: chatter,
		close: func() {
			if err := repo.Close(); err != nil {
				ctxlog.From(ctx).Warn("Failed to close snapshot store", "error", err)
			}
		},
	}, nil
}

// output returns the writer commands print results to
func output(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

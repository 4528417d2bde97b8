package config

import (
	"context"
	"net/url"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/backend"
	"github.com/urfave/cli/v3"
)

// Backend holds connection settings for the chat backend
type Backend struct {
	BaseURL         string
	BackendURL      string
	AccessToken     string `masq:"secret"`
	Model           string
	HistoryDisabled bool
	Timeout         time.Duration
}

// Flags returns CLI flags for backend configuration
func (c *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Reverse proxy URL serving backend-api and public-api",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("WEBCHATTER_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Full backend-api URL, overrides base-url",
			Destination: &c.BackendURL,
			Sources:     cli.EnvVars("WEBCHATTER_BACKEND_URL"),
		},
		&cli.StringFlag{
			Name:        "access-token",
			Usage:       "Access token of the web session",
			Required:    true,
			Destination: &c.AccessToken,
			Sources:     cli.EnvVars("WEBCHATTER_ACCESS_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Model slug used for completions",
			Value:       model.DefaultModel,
			Destination: &c.Model,
			Sources:     cli.EnvVars("WEBCHATTER_MODEL"),
		},
		&cli.BoolFlag{
			Name:        "history-disabled",
			Usage:       "Keep new conversations out of history and training",
			Destination: &c.HistoryDisabled,
			Sources:     cli.EnvVars("WEBCHATTER_HISTORY_DISABLED"),
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "HTTP timeout for backend requests",
			Value:       5 * time.Minute,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("WEBCHATTER_TIMEOUT"),
		},
	}
}

// NewClient creates a backend client. An expired access token is reported but not rejected.
func (c *Backend) NewClient(ctx context.Context) (*backend.Client, error) {
	logger := ctxlog.From(ctx)

	if c.BaseURL == "" && c.BackendURL == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "either --base-url or --backend-url is required")
	}

	var opts []backend.Option
	if c.Timeout > 0 {
		opts = append(opts, backend.WithTimeout(c.Timeout))
	}
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid backend url", goerr.V("backend_url", c.BackendURL))
		}
		opts = append(opts, backend.WithBackendURL(u))
	}

	client, err := backend.New(c.BaseURL, c.AccessToken, opts...)
	if err != nil {
		return nil, err
	}

	if info, ok := backend.InspectToken(c.AccessToken); ok {
		if info.Expired(time.Now()) {
			logger.Warn("Access token has expired", "expired_at", info.ExpiresAt, "email", info.Email)
		} else {
			logger.Debug("Access token loaded", "expires_at", info.ExpiresAt, "email", info.Email)
		}
	}

	logger.Debug("Backend client configured", "config", c, "backend_url", client.BackendURL())
	return client, nil
}

// TimezoneOffsetMin returns the local offset in the form browsers send: minutes behind UTC
func TimezoneOffsetMin(now time.Time) int {
	_, offset := now.Zone()
	return -offset / 60
}

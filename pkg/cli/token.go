package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/infra/backend"
	"github.com/urfave/cli/v3"
)

func cmdToken() *cli.Command {
	var token string

	return &cli.Command{
		Name:  "token",
		Usage: "Show subject, email and expiry of the access token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "access-token",
				Usage:       "Access token of the web session",
				Required:    true,
				Destination: &token,
				Sources:     cli.EnvVars("WEBCHATTER_ACCESS_TOKEN"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			info, ok := backend.InspectToken(token)
			if !ok {
				return goerr.New("access token is not a JWT")
			}

			w := output(c)
			fmt.Fprintf(w, "subject:    %s\n", info.Subject)
			fmt.Fprintf(w, "email:      %s\n", info.Email)
			fmt.Fprintf(w, "issued at:  %s\n", formatTime(info.IssuedAt))
			fmt.Fprintf(w, "expires at: %s\n", formatTime(info.ExpiresAt))

			if info.Expired(time.Now()) {
				newPrinter(w).current.Fprintln(w, "token has expired")
			}
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

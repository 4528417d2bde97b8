package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdAccount() *cli.Command {
	var cfg chatterConfig

	// run wraps an action with backend setup and teardown
	run := func(fn func(ctx context.Context, c *cli.Command, env *chatterEnv) error) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			env, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			defer env.close()
			return fn(ctx, c, env)
		}
	}

	return &cli.Command{
		Name:  "account",
		Usage: "Show account information",
		Flags: cfg.Flags(),
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show account plan and features",
				Action: run(func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					status, err := env.chatter.AccountStatus(ctx)
					if err != nil {
						return err
					}
					return newPrinter(output(c)).JSON(status)
				}),
			},
			{
				Name:  "models",
				Usage: "List model categories available to the account",
				Action: run(func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					models, err := env.chatter.ValidModels(ctx)
					if err != nil {
						return err
					}
					for _, m := range models {
						fmt.Fprintln(output(c), m)
					}
					return nil
				}),
			},
			{
				Name:  "beta",
				Usage: "Show beta feature switches",
				Action: run(func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					features, err := env.chatter.BetaFeatures(ctx)
					if err != nil {
						return err
					}
					names := make([]string, 0, len(features))
					for name := range features {
						names = append(names, name)
					}
					slices.Sort(names)
					for _, name := range names {
						fmt.Fprintf(output(c), "%s: %v\n", name, features[name])
					}
					return nil
				}),
			},
			{
				Name:  "limit",
				Usage: "Show the message cap",
				Action: run(func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					limit, err := env.chatter.ConversationLimit(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(output(c), "%d messages per %d seconds\n", limit.MessageCap, limit.MessageCapWindow)
					return nil
				}),
			},
			{
				Name:  "export",
				Usage: "Request a data export by mail",
				Action: run(func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					if err := env.chatter.ExportData(ctx); err != nil {
						return goerr.Wrap(err, "failed to request export")
					}
					newPrinter(output(c)).Info("Export requested, check your mailbox")
					return nil
				}),
			},
		},
	}
}

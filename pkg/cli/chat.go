package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdChat() *cli.Command {
	var (
		cfg    chatterConfig
		offset int
		limit  int
		order  string
	)

	run := func(nArgs int, usage string, fn func(ctx context.Context, c *cli.Command, env *chatterEnv) error) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() < nArgs {
				return goerr.New("missing arguments", goerr.V("usage", usage))
			}
			env, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			defer env.close()
			return fn(ctx, c, env)
		}
	}

	orderFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:        "order",
			Usage:       "Sort order (updated, created)",
			Value:       model.OrderUpdated,
			Destination: &order,
		}
	}

	return &cli.Command{
		Name:  "chat",
		Usage: "Manage conversations",
		Flags: cfg.Flags(),
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List conversations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Value: 0, Destination: &offset},
					&cli.IntFlag{Name: "limit", Value: 20, Destination: &limit},
					orderFlag(),
				},
				Action: run(0, "chat list", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					chats, err := env.chatter.ChatList(ctx, offset, limit, order)
					if err != nil {
						return err
					}
					for _, chat := range chats {
						fmt.Fprintf(output(c), "%s\t%s\n", chat.ConversationID, chat.Title)
					}
					return nil
				}),
			},
			{
				Name:  "count",
				Usage: "Show the number of conversations",
				Action: run(0, "chat count", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					n, err := env.chatter.NumOfChats(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(output(c), n)
					return nil
				}),
			},
			{
				Name:      "show",
				Aliases:   []string{"mapping"},
				Usage:     "Show the node tree of a conversation",
				ArgsUsage: "CHAT_ID",
				Action: run(1, "chat show CHAT_ID", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					s, err := env.chatter.OpenSession(ctx, c.Args().First())
					if err != nil {
						return err
					}
					newPrinter(output(c)).Tree(s.Mapping(), s.RootID(), s.NodeID())
					return nil
				}),
			},
			{
				Name:      "log",
				Usage:     "Print messages from the root to the current node",
				ArgsUsage: "CHAT_ID",
				Action: run(1, "chat log CHAT_ID", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					s, err := env.chatter.Resume(ctx, c.Args().First())
					if err != nil {
						return err
					}
					newPrinter(output(c)).Log(s.ChatLog())
					return nil
				}),
			},
			{
				Name:      "title",
				Usage:     "Rename a conversation",
				ArgsUsage: "CHAT_ID TITLE",
				Action: run(2, "chat title CHAT_ID TITLE", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					return env.chatter.RenameChat(ctx, c.Args().Get(0), c.Args().Get(1))
				}),
			},
			{
				Name:      "gen-title",
				Usage:     "Let the backend title a conversation from one of its messages",
				ArgsUsage: "CHAT_ID MESSAGE_ID",
				Action: run(2, "chat gen-title CHAT_ID MESSAGE_ID", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					title, err := env.chatter.GenerateTitle(ctx, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintln(output(c), title)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete conversations",
				ArgsUsage: "CHAT_ID...",
				Action: run(1, "chat delete CHAT_ID...", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					for _, id := range c.Args().Slice() {
						if err := env.chatter.DeleteChat(ctx, id); err != nil {
							return goerr.Wrap(err, "failed to delete conversation", goerr.V("chat_id", id))
						}
						ctxlog.From(ctx).Info("Conversation deleted", "chat_id", id)
					}
					return nil
				}),
			},
			{
				Name:  "shares",
				Usage: "List shared conversations",
				Flags: []cli.Flag{orderFlag()},
				Action: run(0, "chat shares", func(ctx context.Context, c *cli.Command, env *chatterEnv) error {
					links, err := env.chatter.ShareLinks(ctx, order)
					if err != nil {
						return err
					}
					for _, link := range links {
						fmt.Fprintf(output(c), "%s\t%s\t%s\n", link.ID, link.ConversationID, link.Title)
					}
					return nil
				}),
			},
		},
	}
}

package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdAsk() *cli.Command {
	var (
		cfg         chatterConfig
		chatID      string
		loadPath    string
		savePath    string
		interactive bool
	)

	flags := append(cfg.Flags(),
		&cli.StringFlag{
			Name:        "chat",
			Usage:       "Continue an existing conversation",
			Destination: &chatID,
		},
		&cli.StringFlag{
			Name:        "load",
			Usage:       "Continue a conversation saved to a file",
			Destination: &loadPath,
		},
		&cli.StringFlag{
			Name:        "save",
			Usage:       "Save the conversation to a file when done (.json, .toml, .yaml)",
			Destination: &savePath,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "Keep asking from stdin after the first prompt",
			Destination: &interactive,
		},
	)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question, or talk interactively without one",
		ArgsUsage: "[PROMPT]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)
			if chatID != "" && loadPath != "" {
				return goerr.New("--chat and --load are exclusive")
			}

			env, err := cfg.setup(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			var s *usecase.Session
			switch {
			case loadPath != "":
				s, err = env.chatter.LoadSession(loadPath)
			case chatID != "":
				s, err = env.chatter.Resume(ctx, chatID)
			default:
				s = env.chatter.NewSession()
			}
			if err != nil {
				return err
			}

			p := newPrinter(output(c))

			if prompt := strings.Join(c.Args().Slice(), " "); prompt != "" {
				answer, err := s.Ask(ctx, prompt)
				if err != nil {
					return err
				}
				p.Answer(answer)
				if err := s.Persist(ctx); err != nil {
					return err
				}
			} else {
				interactive = true
			}

			if interactive {
				r := &repl{session: s, printer: p}
				if err := r.run(ctx, os.Stdin); err != nil {
					return err
				}
			}

			if savePath != "" {
				if err := s.Save(savePath); err != nil {
					return err
				}
				logger.Info("Conversation saved", "path", savePath, "chat_id", s.ChatID())
			}

			logger.Debug("Session finished", "session", s.String(), "node_id", s.NodeID())
			return nil
		},
	}
}

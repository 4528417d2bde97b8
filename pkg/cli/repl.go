package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/usecase"
)

const replHelp = `:back              move to the previous answer
:regen [PROMPT]    answer the current question again, or an edited one
:goto NODE_ID      move to any node
:log               print the current thread
:tree              print every node
:save PATH         save the conversation (.json, .toml, .yaml)
:quit              exit`

// repl is an interactive conversation on one session
type repl struct {
	session *usecase.Session
	printer *printer
}

// run reads lines from in until EOF or :quit. Failed operations are reported and the loop goes on.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	logger := ctxlog.From(ctx)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.printer.user.Fprint(r.printer.w, "user> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return goerr.Wrap(err, "failed to read input")
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := r.exec(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Warn("Command failed", "input", line, "error", err)
			r.printer.Info("error: %v", err)
			continue
		}
		if quit {
			return nil
		}

		if err := r.session.Persist(ctx); err != nil {
			logger.Warn("Failed to persist session", "error", err)
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		answer, err := r.session.Ask(ctx, line)
		if err != nil {
			return false, err
		}
		r.printer.Answer(answer)
		return false, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":quit", ":q", ":exit":
		return true, nil

	case ":back":
		if err := r.session.GoBack(); err != nil {
			return false, err
		}
		r.printer.Answer(r.session.Current().Message)

	case ":regen":
		answer, err := r.session.Regenerate(ctx, arg)
		if err != nil {
			return false, err
		}
		r.printer.Answer(answer)

	case ":goto":
		if arg == "" {
			return false, goerr.New("node id is required")
		}
		if err := r.session.Goto(arg); err != nil {
			return false, err
		}
		r.printer.Info("moved to %s", r.session.Current())

	case ":log":
		r.printer.Log(r.session.ChatLog())

	case ":tree":
		r.printer.Tree(r.session.Mapping(), r.session.RootID(), r.session.NodeID())

	case ":save":
		if arg == "" {
			return false, goerr.New("path is required")
		}
		if err := r.session.Save(arg); err != nil {
			return false, err
		}
		r.printer.Info("saved to %s", arg)

	case ":help":
		r.printer.Info("%s", replHelp)

	default:
		return false, goerr.New("unknown command, try :help", goerr.V("command", cmd))
	}

	return false, nil
}

package backend

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

const maxEventSize = 4 * 1024 * 1024

// readCompletion consumes a text/event-stream of completion events. Each event carries the whole
// message so far, so the answer is the last assistant message seen before "[DONE]".
func readCompletion(r io.Reader) (*model.CompletionResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		result model.CompletionResult
		found  bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var ev model.CompletionEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// keep-alives and non-object payloads
			continue
		}
		result.Events++

		if ev.ConversationID != "" {
			result.ConversationID = ev.ConversationID
		}
		if isError(ev.Error) && ev.Message == nil {
			return nil, goerr.New("backend returned an error in completion stream",
				goerr.V("error", ev.Error),
				goerr.V("conversation_id", result.ConversationID),
			)
		}
		// the backend echoes the question before answering it
		if ev.Message == nil || ev.Message.Author.Role != model.RoleAssistant {
			continue
		}
		result.Message = *ev.Message
		found = true
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read completion stream")
	}

	if !found {
		return nil, goerr.Wrap(model.ErrEmptyResponse, "no assistant message in completion stream",
			goerr.V("events", result.Events))
	}
	return &result, nil
}

func isError(v any) bool {
	switch e := v.(type) {
	case nil:
		return false
	case string:
		return e != ""
	default:
		return true
	}
}

package usecase

import (
	"context"
	"fmt"
	"maps"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/snapshot"
)

// Session is one conversation with its local tree. It is not safe for concurrent use.
type Session struct {
	chatter *Chatter
	tree    *model.ChatTree
	model   string
}

// ChatID returns the conversation id, empty before the first Ask
func (s *Session) ChatID() string { return s.tree.ChatID }

// NodeID returns the current node id
func (s *Session) NodeID() string { return s.tree.NodeID }

// RootID returns the root node id
func (s *Session) RootID() string { return s.tree.RootID }

// Model returns the model slug used by this session
func (s *Session) Model() string { return s.model }

// Mapping returns a copy of the node index
func (s *Session) Mapping() map[string]*model.Node {
	return maps.Clone(s.tree.Mapping)
}

// Current returns the current node
func (s *Session) Current() *model.Node {
	return s.tree.Current()
}

// Ask sends a message below the current node and returns the answer
func (s *Session) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", goerr.New("prompt is empty")
	}

	questionID := s.chatter.newID()
	req := s.newRequest(model.ActionNext, questionID, prompt)

	if !s.tree.Started() {
		rootID := s.chatter.newID()
		req.ParentMessageID = rootID

		res, err := s.complete(ctx, req)
		if err != nil {
			return "", err
		}
		ans := res.Node()
		if err := s.tree.Begin(res.ConversationID, rootID, &model.Node{ID: questionID, Message: prompt}, ans); err != nil {
			return "", err
		}

		ctxlog.From(ctx).Info("Conversation created", "chat_id", s.tree.ChatID, "node_id", ans.ID)
		return ans.Message, nil
	}

	req.ConversationID = s.tree.ChatID
	req.ParentMessageID = s.tree.NodeID

	res, err := s.complete(ctx, req)
	if err != nil {
		return "", err
	}
	ans := res.Node()
	if err := s.tree.Append(&model.Node{ID: questionID, Message: prompt}, ans); err != nil {
		return "", err
	}
	return ans.Message, nil
}

// Regenerate asks again for the current question. An empty prompt requests another answer to the
// same question; a non-empty prompt replaces the question with an edited one.
func (s *Session) Regenerate(ctx context.Context, prompt string) (string, error) {
	if !s.tree.Started() {
		return "", goerr.Wrap(model.ErrNoConversation, "nothing to regenerate")
	}

	question, err := s.tree.Question()
	if err != nil {
		return "", err
	}
	parent, err := s.tree.BranchParent()
	if err != nil {
		return "", err
	}

	if prompt == "" {
		req := s.newRequest(model.ActionVariant, question.ID, question.Message)
		req.ConversationID = s.tree.ChatID
		req.ParentMessageID = parent.ID

		res, err := s.complete(ctx, req)
		if err != nil {
			return "", err
		}
		ans := res.Node()
		if err := s.tree.Variant(ans); err != nil {
			return "", err
		}
		return ans.Message, nil
	}

	questionID := s.chatter.newID()
	req := s.newRequest(model.ActionNext, questionID, prompt)
	req.ConversationID = s.tree.ChatID
	req.ParentMessageID = parent.ID

	res, err := s.complete(ctx, req)
	if err != nil {
		return "", err
	}
	ans := res.Node()
	if err := s.tree.Branch(&model.Node{ID: questionID, Message: prompt}, ans); err != nil {
		return "", err
	}
	return ans.Message, nil
}

// GoBack moves to the answer before the current question
func (s *Session) GoBack() error {
	return s.tree.GoBack()
}

// Goto moves to any node of the conversation
func (s *Session) Goto(nodeID string) error {
	return s.tree.Goto(nodeID)
}

// ChatLog returns the messages from the root to the current node
func (s *Session) ChatLog() []model.LogEntry {
	return s.tree.Log()
}

// Snapshot exports the session
func (s *Session) Snapshot() *model.ChatSnapshot {
	return s.tree.Snapshot(s.model)
}

// Save writes the session to a file. The extension selects JSON, TOML or YAML.
func (s *Session) Save(path string) error {
	if !s.tree.Started() {
		return goerr.Wrap(model.ErrNoConversation, "nothing to save")
	}
	return snapshot.SaveFile(path, s.Snapshot())
}

// Persist stores the session in the repository of the Chatter, if any
func (s *Session) Persist(ctx context.Context) error {
	if s.chatter.repo == nil || !s.tree.Started() {
		return nil
	}
	if err := s.chatter.repo.Save(ctx, s.Snapshot()); err != nil {
		return goerr.Wrap(err, "failed to persist session", goerr.V("chat_id", s.tree.ChatID))
	}
	return nil
}

func (s *Session) String() string {
	id := s.tree.ChatID
	if id == "" {
		id = "None"
	}
	return fmt.Sprintf("<WebChat: %s>", id)
}

func (s *Session) newRequest(action, messageID, prompt string) *model.CompletionRequest {
	return &model.CompletionRequest{
		Action:                     action,
		Messages:                   []model.RequestMessage{model.NewUserMessage(messageID, prompt)},
		Model:                      s.model,
		TimezoneOffsetMin:          s.chatter.tzOffsetMin,
		HistoryAndTrainingDisabled: s.chatter.historyDisabled,
	}
}

func (s *Session) complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResult, error) {
	res, err := s.chatter.backend.Complete(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get answer",
			goerr.V("chat_id", s.tree.ChatID),
			goerr.V("parent_message_id", req.ParentMessageID),
		)
	}
	if res.Message.ID == "" {
		return nil, goerr.Wrap(model.ErrEmptyResponse, "answer has no message id", goerr.V("chat_id", res.ConversationID))
	}
	if res.Message.Author.Role == model.RoleUser || res.Message.ID == req.Messages[0].ID {
		return nil, goerr.Wrap(model.ErrEmptyResponse, "answer echoes the question",
			goerr.V("chat_id", res.ConversationID),
			goerr.V("message_id", res.Message.ID),
		)
	}
	return res, nil
}

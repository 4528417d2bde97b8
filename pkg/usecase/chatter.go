package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/snapshot"
)

// Chatter holds the backend and the defaults shared by every session
type Chatter struct {
	backend         interfaces.Backend
	repo            interfaces.ChatRepository
	model           string
	historyDisabled bool
	tzOffsetMin     int
	newID           func() string
}

// Option is a functional option for Chatter
type Option func(*Chatter)

// WithRepository enables Persist and Resume
func WithRepository(repo interfaces.ChatRepository) Option {
	return func(c *Chatter) {
		c.repo = repo
	}
}

// WithModel sets the model slug used for completions
func WithModel(slug string) Option {
	return func(c *Chatter) {
		if slug != "" {
			c.model = slug
		}
	}
}

// WithHistoryDisabled keeps new conversations out of the web history
func WithHistoryDisabled(disabled bool) Option {
	return func(c *Chatter) {
		c.historyDisabled = disabled
	}
}

// WithTimezoneOffset sets timezone_offset_min sent with completions
func WithTimezoneOffset(minutes int) Option {
	return func(c *Chatter) {
		c.tzOffsetMin = minutes
	}
}

// WithIDGenerator replaces the message id generator
func WithIDGenerator(fn func() string) Option {
	return func(c *Chatter) {
		c.newID = fn
	}
}

// NewChatter creates a Chatter
func NewChatter(backend interfaces.Backend, opts ...Option) *Chatter {
	c := &Chatter{
		backend: backend,
		model:   model.DefaultModel,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model slug
func (c *Chatter) Model() string {
	return c.model
}

// AccountPlan returns the subscription plan of the account
func (c *Chatter) AccountPlan(ctx context.Context) (*model.AccountPlan, error) {
	status, err := c.backend.AccountStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &status.AccountPlan, nil
}

// AccountStatus returns the whole account status
func (c *Chatter) AccountStatus(ctx context.Context) (*model.AccountStatus, error) {
	return c.backend.AccountStatus(ctx)
}

// ValidModels returns the model categories available to the account
func (c *Chatter) ValidModels(ctx context.Context) ([]string, error) {
	models, err := c.backend.Models(ctx, c.historyDisabled)
	if err != nil {
		return nil, err
	}
	return models.CategoryNames(), nil
}

// BetaFeatures returns the beta feature switches
func (c *Chatter) BetaFeatures(ctx context.Context) (map[string]bool, error) {
	return c.backend.BetaFeatures(ctx)
}

// ConversationLimit returns the gpt-4 message cap
func (c *Chatter) ConversationLimit(ctx context.Context) (*model.ConversationLimit, error) {
	return c.backend.ConversationLimit(ctx)
}

// ExportData asks the backend to mail an export of all data
func (c *Chatter) ExportData(ctx context.Context) error {
	return c.backend.ExportData(ctx)
}

// ChatList returns id and title of conversations
func (c *Chatter) ChatList(ctx context.Context, offset, limit int, order string) ([]model.ChatSummary, error) {
	list, err := c.backend.ListChats(ctx, offset, limit, order)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// NumOfChats returns the number of conversations
func (c *Chatter) NumOfChats(ctx context.Context) (int, error) {
	list, err := c.backend.ListChats(ctx, 0, 1, model.OrderUpdated)
	if err != nil {
		return 0, err
	}
	return list.Total, nil
}

// ShareLinks returns the shared conversations
func (c *Chatter) ShareLinks(ctx context.Context, order string) ([]model.ShareLink, error) {
	links, err := c.backend.ShareLinks(ctx, order)
	if err != nil {
		return nil, err
	}
	return links.Items, nil
}

// RenameChat changes the title of a conversation
func (c *Chatter) RenameChat(ctx context.Context, chatID, title string) error {
	return c.backend.EditTitle(ctx, chatID, title)
}

// GenerateTitle lets the backend name a conversation from one of its messages
func (c *Chatter) GenerateTitle(ctx context.Context, chatID, messageID string) (string, error) {
	return c.backend.GenerateTitle(ctx, chatID, messageID)
}

// DeleteChat hides a conversation and drops its stored snapshot
func (c *Chatter) DeleteChat(ctx context.Context, chatID string) error {
	if err := c.backend.DeleteChat(ctx, chatID); err != nil {
		return err
	}

	if c.repo != nil {
		if err := c.repo.Delete(ctx, chatID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return goerr.Wrap(err, "conversation deleted but snapshot remains", goerr.V("chat_id", chatID))
		}
	}
	return nil
}

// Mapping fetches a conversation and returns its simplified nodes
func (c *Chatter) Mapping(ctx context.Context, chatID string) (map[string]*model.Node, error) {
	tree, err := c.fetchTree(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return tree.Mapping, nil
}

// NewSession starts an empty session; the conversation is created by the first Ask
func (c *Chatter) NewSession() *Session {
	return &Session{chatter: c, tree: model.NewChatTree(), model: c.model}
}

// OpenSession builds a session from a conversation stored on the backend
func (c *Chatter) OpenSession(ctx context.Context, chatID string) (*Session, error) {
	tree, err := c.fetchTree(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &Session{chatter: c, tree: tree, model: c.model}, nil
}

// LoadSession restores a session saved with Session.Save
func (c *Chatter) LoadSession(path string) (*Session, error) {
	snap, err := snapshot.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return c.sessionFromSnapshot(snap)
}

// Resume restores a session from the repository, falling back to the backend conversation
func (c *Chatter) Resume(ctx context.Context, chatID string) (*Session, error) {
	logger := ctxlog.From(ctx)

	if c.repo != nil {
		snap, err := c.repo.Load(ctx, chatID)
		switch {
		case err == nil:
			return c.sessionFromSnapshot(snap)
		case errors.Is(err, model.ErrNotFound):
			logger.Debug("No stored snapshot, fetching conversation from backend", "chat_id", chatID)
		default:
			return nil, goerr.Wrap(err, "failed to load snapshot", goerr.V("chat_id", chatID))
		}
	}

	return c.OpenSession(ctx, chatID)
}

func (c *Chatter) sessionFromSnapshot(snap *model.ChatSnapshot) (*Session, error) {
	tree, err := model.TreeFromSnapshot(snap)
	if err != nil {
		return nil, err
	}

	slug := snap.Model
	if slug == "" {
		slug = c.model
	}
	return &Session{chatter: c, tree: tree, model: slug}, nil
}

func (c *Chatter) fetchTree(ctx context.Context, chatID string) (*model.ChatTree, error) {
	if chatID == "" {
		return nil, goerr.Wrap(model.ErrNoConversation, "chat id is not set")
	}

	conv, err := c.backend.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	tree, err := model.FromConversation(chatID, conv)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build conversation tree", goerr.V("chat_id", chatID))
	}
	return tree, nil
}

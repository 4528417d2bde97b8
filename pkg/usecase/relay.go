package usecase

import (
	"context"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/utils/async"
)

// Relay serves sessions to concurrent HTTP requests. Each request resumes the session from the
// repository, applies one operation and persists it again; requests on the same chat are serialized.
type Relay struct {
	chatter   *Chatter
	autoTitle bool

	mu    sync.Mutex
	locks map[string]*chatLock
}

// chatLock is dropped from Relay.locks when no caller holds or waits on it
type chatLock struct {
	sync.Mutex
	refs int
}

var _ interfaces.RelayUseCase = (*Relay)(nil)

// RelayOption is a functional option for Relay
type RelayOption func(*Relay)

// WithAutoTitle toggles title generation after a conversation is created
func WithAutoTitle(enabled bool) RelayOption {
	return func(r *Relay) {
		r.autoTitle = enabled
	}
}

// NewRelay creates a Relay
func NewRelay(chatter *Chatter, opts ...RelayOption) *Relay {
	r := &Relay{
		chatter:   chatter,
		autoTitle: true,
		locks:     map[string]*chatLock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Relay) lock(chatID string) func() {
	r.mu.Lock()
	l, ok := r.locks[chatID]
	if !ok {
		l = &chatLock{}
		r.locks[chatID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, chatID)
		}
		r.mu.Unlock()
	}
}

func (r *Relay) AccountStatus(ctx context.Context) (*model.AccountStatus, error) {
	return r.chatter.AccountStatus(ctx)
}

func (r *Relay) ValidModels(ctx context.Context) ([]string, error) {
	return r.chatter.ValidModels(ctx)
}

func (r *Relay) ChatList(ctx context.Context, offset, limit int, order string) ([]model.ChatSummary, error) {
	return r.chatter.ChatList(ctx, offset, limit, order)
}

func (r *Relay) Start(ctx context.Context, prompt string) (*model.Reply, error) {
	s := r.chatter.NewSession()
	answer, err := s.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(ctx); err != nil {
		return nil, err
	}

	if r.autoTitle {
		chatID, nodeID := s.ChatID(), s.NodeID()
		async.Dispatch(ctx, func(ctx context.Context) error {
			title, err := r.chatter.GenerateTitle(ctx, chatID, nodeID)
			if err != nil {
				return goerr.Wrap(err, "failed to generate title", goerr.V("chat_id", chatID))
			}
			ctxlog.From(ctx).Info("Title generated", "chat_id", chatID, "title", title)
			return nil
		})
	}

	return &model.Reply{ChatID: s.ChatID(), NodeID: s.NodeID(), Answer: answer}, nil
}

func (r *Relay) Continue(ctx context.Context, chatID, prompt string) (*model.Reply, error) {
	return r.update(ctx, chatID, func(s *Session) (string, error) {
		return s.Ask(ctx, prompt)
	})
}

func (r *Relay) Regenerate(ctx context.Context, chatID, prompt string) (*model.Reply, error) {
	return r.update(ctx, chatID, func(s *Session) (string, error) {
		return s.Regenerate(ctx, prompt)
	})
}

func (r *Relay) GoBack(ctx context.Context, chatID string) (*model.Reply, error) {
	return r.update(ctx, chatID, func(s *Session) (string, error) {
		if err := s.GoBack(); err != nil {
			return "", err
		}
		return s.Current().Message, nil
	})
}

func (r *Relay) ChatLog(ctx context.Context, chatID string) ([]model.LogEntry, error) {
	unlock := r.lock(chatID)
	defer unlock()

	s, err := r.chatter.Resume(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.ChatLog(), nil
}

func (r *Relay) RenameChat(ctx context.Context, chatID, title string) error {
	return r.chatter.RenameChat(ctx, chatID, title)
}

func (r *Relay) DeleteChat(ctx context.Context, chatID string) error {
	unlock := r.lock(chatID)
	defer unlock()

	return r.chatter.DeleteChat(ctx, chatID)
}

func (r *Relay) update(ctx context.Context, chatID string, fn func(s *Session) (string, error)) (*model.Reply, error) {
	unlock := r.lock(chatID)
	defer unlock()

	s, err := r.chatter.Resume(ctx, chatID)
	if err != nil {
		return nil, err
	}

	answer, err := fn(s)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(ctx); err != nil {
		return nil, err
	}

	return &model.Reply{ChatID: s.ChatID(), NodeID: s.NodeID(), Answer: answer}, nil
}

package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// mockBackend is a mock implementation of interfaces.Backend
type mockBackend struct {
	mu           sync.Mutex
	requests     []*model.CompletionRequest
	completeFunc func(req *model.CompletionRequest) (*model.CompletionResult, error)
	chats        map[string]*model.Conversation
	titles       map[string]string
	deleted      []string
	titleCalls   chan string
	answerSeq    int

	// deleteGate holds DeleteChat until closed; deleteEntered is signaled first
	deleteGate    chan struct{}
	deleteEntered chan struct{}
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		chats:      map[string]*model.Conversation{},
		titles:     map[string]string{},
		titleCalls: make(chan string, 8),
	}
}

// echoAnswer answers "re: <prompt>" in conversation conv-1
func (m *mockBackend) echoAnswer(req *model.CompletionRequest) (*model.CompletionResult, error) {
	m.answerSeq++
	convID := req.ConversationID
	if convID == "" {
		convID = "conv-1"
	}
	return &model.CompletionResult{
		ConversationID: convID,
		Message: model.RawMessage{
			ID:      fmt.Sprintf("ans-%d", m.answerSeq),
			Author:  model.Author{Role: model.RoleAssistant},
			Content: model.TextContent("re: " + req.Messages[0].Content.Text()),
		},
	}, nil
}

func (m *mockBackend) lastRequest() *model.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockBackend) Complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.completeFunc
	if fn == nil {
		defer m.mu.Unlock()
		return m.echoAnswer(req)
	}
	m.mu.Unlock()
	return fn(req)
}

func (m *mockBackend) AccountStatus(ctx context.Context) (*model.AccountStatus, error) {
	return &model.AccountStatus{AccountPlan: model.AccountPlan{SubscriptionPlan: "chatgptplusplan", IsPaidSubscriptionActive: true}}, nil
}

func (m *mockBackend) Models(ctx context.Context, historyDisabled bool) (*model.ModelList, error) {
	return &model.ModelList{Categories: []model.ModelCategory{{Category: "gpt_3.5"}, {Category: "gpt_4"}}}, nil
}

func (m *mockBackend) BetaFeatures(ctx context.Context) (map[string]bool, error) {
	return map[string]bool{"browsing": true}, nil
}

func (m *mockBackend) ConversationLimit(ctx context.Context) (*model.ConversationLimit, error) {
	return &model.ConversationLimit{MessageCap: 40}, nil
}

func (m *mockBackend) ExportData(ctx context.Context) error {
	return nil
}

func (m *mockBackend) ListChats(ctx context.Context, offset, limit int, order string) (*model.ChatList, error) {
	return &model.ChatList{
		Items:  []model.ChatSummary{{ConversationID: "c1", Title: "first"}, {ConversationID: "c2", Title: "second"}},
		Total:  12,
		Offset: offset,
		Limit:  limit,
	}, nil
}

func (m *mockBackend) GetChat(ctx context.Context, chatID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.chats[chatID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return conv, nil
}

func (m *mockBackend) ShareLinks(ctx context.Context, order string) (*model.ShareLinkList, error) {
	return &model.ShareLinkList{Items: []model.ShareLink{{ID: "s1"}}, Total: 1}, nil
}

func (m *mockBackend) EditTitle(ctx context.Context, chatID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles[chatID] = title
	return nil
}

func (m *mockBackend) GenerateTitle(ctx context.Context, chatID, messageID string) (string, error) {
	m.titleCalls <- chatID + "/" + messageID
	return "Generated", nil
}

func (m *mockBackend) DeleteChat(ctx context.Context, chatID string) error {
	if m.deleteGate != nil {
		m.deleteEntered <- struct{}{}
		<-m.deleteGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, chatID)
	return nil
}

// sequentialIDs returns an id generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

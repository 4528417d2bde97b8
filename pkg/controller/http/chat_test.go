package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/webchatter/pkg/controller/http"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// mockRelay is a mock implementation of interfaces.RelayUseCase
type mockRelay struct {
	startFunc    func(ctx context.Context, prompt string) (*model.Reply, error)
	continueFunc func(ctx context.Context, chatID, prompt string) (*model.Reply, error)
	regenFunc    func(ctx context.Context, chatID, prompt string) (*model.Reply, error)
	goBackFunc   func(ctx context.Context, chatID string) (*model.Reply, error)
	deleteFunc   func(ctx context.Context, chatID string) error

	listArgs []any
	renamed  map[string]string
}

func (m *mockRelay) AccountStatus(ctx context.Context) (*model.AccountStatus, error) {
	return &model.AccountStatus{AccountPlan: model.AccountPlan{SubscriptionPlan: "chatgptplusplan"}}, nil
}

func (m *mockRelay) ValidModels(ctx context.Context) ([]string, error) {
	return []string{"gpt_3.5", "gpt_4"}, nil
}

func (m *mockRelay) ChatList(ctx context.Context, offset, limit int, order string) ([]model.ChatSummary, error) {
	m.listArgs = []any{offset, limit, order}
	return []model.ChatSummary{{ConversationID: "c1", Title: "first"}}, nil
}

func (m *mockRelay) Start(ctx context.Context, prompt string) (*model.Reply, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx, prompt)
	}
	return &model.Reply{ChatID: "c1", NodeID: "a1", Answer: "re: " + prompt}, nil
}

func (m *mockRelay) Continue(ctx context.Context, chatID, prompt string) (*model.Reply, error) {
	if m.continueFunc != nil {
		return m.continueFunc(ctx, chatID, prompt)
	}
	return &model.Reply{ChatID: chatID, NodeID: "a2", Answer: "re: " + prompt}, nil
}

func (m *mockRelay) Regenerate(ctx context.Context, chatID, prompt string) (*model.Reply, error) {
	if m.regenFunc != nil {
		return m.regenFunc(ctx, chatID, prompt)
	}
	return &model.Reply{ChatID: chatID, NodeID: "a3", Answer: "again: " + prompt}, nil
}

func (m *mockRelay) GoBack(ctx context.Context, chatID string) (*model.Reply, error) {
	if m.goBackFunc != nil {
		return m.goBackFunc(ctx, chatID)
	}
	return &model.Reply{ChatID: chatID, NodeID: "a1", Answer: "hi"}, nil
}

func (m *mockRelay) ChatLog(ctx context.Context, chatID string) ([]model.LogEntry, error) {
	if chatID == "missing" {
		return nil, goerr.Wrap(model.ErrNotFound, "no chat")
	}
	return []model.LogEntry{
		{ID: "q1", Role: model.RoleUser, Content: "hello"},
		{ID: "a1", Role: model.RoleAssistant, Content: "hi"},
	}, nil
}

func (m *mockRelay) RenameChat(ctx context.Context, chatID, title string) error {
	if m.renamed == nil {
		m.renamed = map[string]string{}
	}
	m.renamed[chatID] = title
	return nil
}

func (m *mockRelay) DeleteChat(ctx context.Context, chatID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, chatID)
	}
	return nil
}

func newTestServer(t *testing.T, relay *mockRelay) *httptest.Server {
	t.Helper()
	server, err := controller.NewServer(context.Background(), relay)
	gt.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, r)
	gt.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err)
	defer func() {
		_ = resp.Body.Close() // Error ignored in test
	}()

	data, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	return resp, data
}

func TestChatHandler_Conversation(t *testing.T) {
	relay := &mockRelay{}
	ts := newTestServer(t, relay)

	t.Run("start", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats", `{"prompt":"hello"}`)
		gt.Equal(t, resp.StatusCode, http.StatusCreated)

		var reply model.Reply
		gt.NoError(t, json.Unmarshal(body, &reply))
		gt.Equal(t, reply, model.Reply{ChatID: "c1", NodeID: "a1", Answer: "re: hello"})
	})

	t.Run("start without prompt", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/chats", `{"prompt":""}`)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})

	t.Run("start with broken body", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/chats", `{"prompt":`)
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})

	t.Run("continue", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats/c1/messages", `{"prompt":"next"}`)
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var reply model.Reply
		gt.NoError(t, json.Unmarshal(body, &reply))
		gt.Equal(t, reply.ChatID, "c1")
		gt.Equal(t, reply.Answer, "re: next")
	})

	t.Run("regenerate without body", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats/c1/regenerate", "")
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var reply model.Reply
		gt.NoError(t, json.Unmarshal(body, &reply))
		gt.Equal(t, reply.Answer, "again: ")
	})

	t.Run("regenerate with edited prompt", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats/c1/regenerate", `{"prompt":"edited"}`)
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var reply model.Reply
		gt.NoError(t, json.Unmarshal(body, &reply))
		gt.Equal(t, reply.Answer, "again: edited")
	})

	t.Run("back", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats/c1/back", "")
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var reply model.Reply
		gt.NoError(t, json.Unmarshal(body, &reply))
		gt.Equal(t, reply.NodeID, "a1")
	})

	t.Run("log", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/chats/c1/log", "")
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var out struct {
			ChatID   string           `json:"chat_id"`
			Messages []model.LogEntry `json:"messages"`
		}
		gt.NoError(t, json.Unmarshal(body, &out))
		gt.Equal(t, out.ChatID, "c1")
		gt.Equal(t, len(out.Messages), 2)
		gt.Equal(t, out.Messages[1].Role, model.RoleAssistant)
	})

	t.Run("rename", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodPatch, ts.URL+"/api/chats/c1", `{"title":"greeting"}`)
		gt.Equal(t, resp.StatusCode, http.StatusNoContent)
		gt.Equal(t, relay.renamed["c1"], "greeting")
	})

	t.Run("delete", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/api/chats/c1", "")
		gt.Equal(t, resp.StatusCode, http.StatusNoContent)
	})
}

func TestChatHandler_List(t *testing.T) {
	relay := &mockRelay{}
	ts := newTestServer(t, relay)

	t.Run("defaults", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/chats", "")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.Equal(t, relay.listArgs, []any{0, 20, model.OrderUpdated})

		var out struct {
			Items []model.ChatSummary `json:"items"`
		}
		gt.NoError(t, json.Unmarshal(body, &out))
		gt.Equal(t, out.Items[0].ConversationID, "c1")
	})

	t.Run("query parameters", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/chats?offset=40&limit=5&order=created", "")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.Equal(t, relay.listArgs, []any{40, 5, model.OrderCreated})
	})

	for _, query := range []string{"offset=-1", "limit=abc", "order=random"} {
		t.Run("invalid "+query, func(t *testing.T) {
			resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/chats?"+query, "")
			gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
		})
	}
}

func TestChatHandler_Account(t *testing.T) {
	ts := newTestServer(t, &mockRelay{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/account", "")
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	var status model.AccountStatus
	gt.NoError(t, json.Unmarshal(body, &status))
	gt.Equal(t, status.AccountPlan.SubscriptionPlan, "chatgptplusplan")

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/api/models", "")
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	var models map[string][]string
	gt.NoError(t, json.Unmarshal(body, &models))
	gt.Equal(t, models["models"], []string{"gpt_3.5", "gpt_4"})
}

func TestChatHandler_ErrorStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: goerr.Wrap(model.ErrNotFound, "gone"), want: http.StatusNotFound},
		{name: "unauthorized", err: goerr.Wrap(model.ErrUnauthorized, "expired"), want: http.StatusUnauthorized},
		{name: "at root", err: goerr.Wrap(model.ErrAtRoot, "top"), want: http.StatusConflict},
		{name: "empty answer", err: goerr.Wrap(model.ErrEmptyResponse, "nothing"), want: http.StatusBadGateway},
		{name: "other", err: goerr.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			relay := &mockRelay{
				goBackFunc: func(ctx context.Context, chatID string) (*model.Reply, error) {
					return nil, tc.err
				},
			}
			ts := newTestServer(t, relay)

			resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chats/c1/back", "")
			gt.Equal(t, resp.StatusCode, tc.want)

			var out map[string]string
			gt.NoError(t, json.Unmarshal(body, &out))
			gt.Value(t, out["error"]).NotEqual("")
		})
	}

	t.Run("log of unknown chat", func(t *testing.T) {
		ts := newTestServer(t, &mockRelay{})
		resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/chats/missing/log", "")
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
	})
}

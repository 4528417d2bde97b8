package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/backend"
)

const testToken = "test-access-token"

// fakeBackend records requests received by a chi router
type fakeBackend struct {
	router  chi.Router
	server  *httptest.Server
	headers http.Header
	query   url.Values
	body    map[string]any
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{router: chi.NewRouter()}
	fb.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fb.headers = r.Header.Clone()
			fb.query = r.URL.Query()
			fb.body = nil
			if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
				_ = json.Unmarshal(raw, &fb.body)
			}
			next.ServeHTTP(w, r)
		})
	})
	fb.server = httptest.NewServer(fb.router)
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) client(t *testing.T) *backend.Client {
	t.Helper()
	c, err := backend.New(fb.server.URL, testToken)
	gt.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	t.Run("backend url derived from base url", func(t *testing.T) {
		c, err := backend.New("https://proxy.example.com/", "token")
		gt.NoError(t, err)
		gt.Equal(t, c.BackendURL(), "https://proxy.example.com/backend-api")
	})

	t.Run("explicit backend url wins", func(t *testing.T) {
		u, _ := url.Parse("https://proxy.example.com/api/backend-api")
		c, err := backend.New("", "token", backend.WithBackendURL(u))
		gt.NoError(t, err)
		gt.Equal(t, c.BackendURL(), "https://proxy.example.com/api/backend-api")
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := backend.New("https://proxy.example.com", "")
		gt.True(t, errors.Is(err, model.ErrInvalidConfig))
	})

	t.Run("missing urls", func(t *testing.T) {
		_, err := backend.New("", "token")
		gt.True(t, errors.Is(err, model.ErrInvalidConfig))
	})
}

func TestNew_TimeoutKeepsGivenClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	shared := &http.Client{}
	c, err := backend.New(ts.URL, testToken,
		backend.WithHTTPClient(shared),
		backend.WithTimeout(50*time.Millisecond),
	)
	gt.NoError(t, err)
	gt.Equal(t, shared.Timeout, time.Duration(0))

	_, err = c.AccountStatus(context.Background())
	gt.Error(t, err)

	_, err = backend.New(ts.URL, testToken,
		backend.WithHTTPClient(http.DefaultClient),
		backend.WithTimeout(time.Second),
	)
	gt.NoError(t, err)
	gt.Equal(t, http.DefaultClient.Timeout, time.Duration(0))
}

func TestClient_Account(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend(t)
	fb.router.Get("/backend-api/accounts/check", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"account_plan": map[string]any{
				"is_paid_subscription_active": true,
				"subscription_plan":           "chatgptplusplan",
			},
		})
	})
	fb.router.Get("/backend-api/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"models":     []any{map[string]any{"slug": "gpt-4"}},
			"categories": []any{map[string]any{"category": "gpt_3.5"}, map[string]any{"category": "gpt_4"}},
		})
	})
	fb.router.Get("/backend-api/settings/beta_features", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"browsing": true, "plugins": false})
	})
	fb.router.Get("/public-api/conversation_limit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"message_cap": 40, "message_cap_window": 180})
	})
	fb.router.Post("/backend-api/accounts/data_export", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "queued"})
	})
	c := fb.client(t)

	t.Run("account status", func(t *testing.T) {
		status, err := c.AccountStatus(ctx)
		gt.NoError(t, err)
		gt.True(t, status.AccountPlan.IsPaidSubscriptionActive)
		gt.Equal(t, status.AccountPlan.SubscriptionPlan, "chatgptplusplan")
		gt.Equal(t, fb.headers.Get("Authorization"), "Bearer "+testToken)
		gt.Equal(t, fb.headers.Get("Content-Type"), "application/json")
	})

	t.Run("models", func(t *testing.T) {
		models, err := c.Models(ctx, true)
		gt.NoError(t, err)
		gt.Equal(t, models.CategoryNames(), []string{"gpt_3.5", "gpt_4"})
		gt.Equal(t, fb.query.Get("history_and_training_disabled"), "true")
	})

	t.Run("beta features", func(t *testing.T) {
		features, err := c.BetaFeatures(ctx)
		gt.NoError(t, err)
		gt.Equal(t, features, map[string]bool{"browsing": true, "plugins": false})
	})

	t.Run("conversation limit", func(t *testing.T) {
		limit, err := c.ConversationLimit(ctx)
		gt.NoError(t, err)
		gt.Equal(t, limit.MessageCap, 40)
		gt.Equal(t, limit.MessageCapWindow, 180)
	})

	t.Run("data export", func(t *testing.T) {
		gt.NoError(t, c.ExportData(ctx))
	})
}

func TestClient_Chats(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend(t)

	var patched []map[string]any
	fb.router.Get("/backend-api/conversations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"items": []any{
				map[string]any{"id": "c1", "title": "first"},
				map[string]any{"id": "c2", "title": "second"},
			},
			"total": 42,
		})
	})
	fb.router.Get("/backend-api/conversation/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"title":        "first",
			"current_node": "a1",
			"mapping": map[string]any{
				"root": map[string]any{"id": "root", "children": []string{"a1"}},
				"a1": map[string]any{"id": "a1", "parent": "root", "children": []string{},
					"message": map[string]any{"id": "a1", "author": map[string]any{"role": "assistant"},
						"content": map[string]any{"content_type": "text", "parts": []string{"hi"}}}},
			},
		})
	})
	fb.router.Patch("/backend-api/conversation/{id}", func(w http.ResponseWriter, r *http.Request) {
		patched = append(patched, fb.body)
		writeJSON(w, map[string]bool{"success": true})
	})
	fb.router.Post("/backend-api/conversation/gen_title/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"title": "Generated " + chi.URLParam(r, "id")})
	})
	fb.router.Get("/backend-api/shared_conversations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []any{map[string]any{"id": "s1", "title": "shared"}}, "total": 1})
	})
	c := fb.client(t)

	t.Run("list with limit", func(t *testing.T) {
		list, err := c.ListChats(ctx, 3, 5, "")
		gt.NoError(t, err)
		gt.Equal(t, len(list.Items), 2)
		gt.Equal(t, list.Items[1].ConversationID, "c2")
		gt.Equal(t, list.Total, 42)
		gt.Equal(t, fb.query.Get("offset"), "3")
		gt.Equal(t, fb.query.Get("limit"), "5")
		gt.Equal(t, fb.query.Get("order"), "updated")
	})

	t.Run("list without limit omits parameter", func(t *testing.T) {
		_, err := c.ListChats(ctx, 0, 0, model.OrderCreated)
		gt.NoError(t, err)
		gt.Equal(t, fb.query.Has("limit"), false)
		gt.Equal(t, fb.query.Get("order"), "created")
	})

	t.Run("get chat", func(t *testing.T) {
		conv, err := c.GetChat(ctx, "c1")
		gt.NoError(t, err)
		gt.Equal(t, conv.CurrentNode, "a1")
		gt.Equal(t, len(conv.Mapping), 2)
		gt.Equal(t, conv.Mapping["a1"].Message.Content.Text(), "hi")
	})

	t.Run("get missing chat", func(t *testing.T) {
		_, err := c.GetChat(ctx, "nope")
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("edit title and delete", func(t *testing.T) {
		patched = nil
		gt.NoError(t, c.EditTitle(ctx, "c1", "New Test"))
		gt.NoError(t, c.DeleteChat(ctx, "c1"))
		gt.Equal(t, len(patched), 2)
		gt.Equal(t, patched[0]["title"], any("New Test"))
		gt.Equal(t, patched[1]["is_visible"], any(false))
	})

	t.Run("generate title", func(t *testing.T) {
		title, err := c.GenerateTitle(ctx, "c1", "m1")
		gt.NoError(t, err)
		gt.Equal(t, title, "Generated c1")
		gt.Equal(t, fb.body["message_id"], any("m1"))
	})

	t.Run("share links", func(t *testing.T) {
		links, err := c.ShareLinks(ctx, "")
		gt.NoError(t, err)
		gt.Equal(t, links.Total, 1)
		gt.Equal(t, fb.query.Get("order"), "created")
	})
}

func TestClient_StatusErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status int
		target error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, target: model.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, target: model.ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, target: model.ErrNotFound},
		{name: "server error", status: http.StatusBadGateway, target: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.router.Get("/backend-api/accounts/check", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := fb.client(t).AccountStatus(ctx)
			gt.Error(t, err)
			if tt.target != nil {
				gt.True(t, errors.Is(err, tt.target))
			} else {
				gt.Equal(t, errors.Is(err, model.ErrUnauthorized), false)
				gt.Equal(t, errors.Is(err, model.ErrNotFound), false)
			}
		})
	}
}

func TestClient_Complete(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend(t)

	fb.router.Post("/backend-api/conversation", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"message":{"id":"u1","author":{"role":"user"},"content":{"content_type":"text","parts":["hello"]}},"conversation_id":"conv-1","error":null}`,
			`{"message":{"id":"a1","author":{"role":"assistant"},"content":{"content_type":"text","parts":["Hi"]}},"conversation_id":"conv-1","error":null}`,
			`"v1"`,
			`{"message":{"id":"a1","author":{"role":"assistant"},"content":{"content_type":"text","parts":["Hi there"]}},"conversation_id":"conv-1","error":null}`,
			`{"type":"title_generation","title":"Greeting","conversation_id":"conv-1"}`,
		}
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	c := fb.client(t)

	req := &model.CompletionRequest{
		Action:          model.ActionNext,
		Messages:        []model.RequestMessage{model.NewUserMessage("u1", "hello")},
		ParentMessageID: "root",
		Model:           model.DefaultModel,
	}

	result, err := c.Complete(ctx, req)
	gt.NoError(t, err)
	gt.Equal(t, result.ConversationID, "conv-1")
	gt.Equal(t, result.Message.ID, "a1")
	gt.Equal(t, result.Message.Content.Text(), "Hi there")
	gt.Equal(t, result.Events, 4)

	gt.Equal(t, fb.headers.Get("Accept"), "text/event-stream")
	gt.Equal(t, fb.body["action"], any("next"))
	gt.Equal(t, fb.body["parent_message_id"], any("root"))
	_, hasConv := fb.body["conversation_id"]
	gt.Equal(t, hasConv, false)

	node := result.Node()
	gt.Equal(t, node.Role, model.RoleAssistant)
	gt.Equal(t, node.Message, "Hi there")
}

func TestClient_CompleteErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		stream string
		target error
	}{
		{
			name:   "empty stream",
			stream: "data: [DONE]\n\n",
			target: model.ErrEmptyResponse,
		},
		{
			name:   "error event",
			stream: "data: {\"message\":null,\"conversation_id\":\"c\",\"error\":\"Something went wrong\"}\n\ndata: [DONE]\n\n",
		},
		{
			name: "only the question echoed",
			stream: "data: {\"message\":{\"id\":\"q1\",\"author\":{\"role\":\"user\"},\"content\":{\"content_type\":\"text\",\"parts\":[\"hi\"]}},\"conversation_id\":\"c\",\"error\":null}\n\n" +
				"data: [DONE]\n\n",
			target: model.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.router.Post("/backend-api/conversation", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.Copy(w, strings.NewReader(tt.stream))
			})

			_, err := fb.client(t).Complete(ctx, &model.CompletionRequest{Action: model.ActionNext})
			gt.Error(t, err)
			if tt.target != nil {
				gt.True(t, errors.Is(err, tt.target))
			}
		})
	}
}

func TestClient_Integration(t *testing.T) {
	baseURL := os.Getenv("TEST_WEBCHATTER_BASE_URL")
	token := os.Getenv("TEST_WEBCHATTER_ACCESS_TOKEN")
	if baseURL == "" || token == "" {
		t.Skip("TEST_WEBCHATTER_BASE_URL or TEST_WEBCHATTER_ACCESS_TOKEN not set, skipping integration test")
	}

	c, err := backend.New(baseURL, token)
	gt.NoError(t, err)

	models, err := c.Models(context.Background(), false)
	gt.NoError(t, err)
	gt.Number(t, len(models.Categories)).Greater(0)
}

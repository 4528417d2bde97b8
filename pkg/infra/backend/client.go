package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/domain/types"
)

const (
	defaultTimeout = 5 * time.Minute
	maxErrorBody   = 1024
)

// Client accesses the ChatGPT web backend through a reverse proxy
type Client struct {
	backendURL *url.URL
	publicURL  *url.URL
	token      string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

var _ interfaces.Backend = (*Client)(nil)

// Option is a functional option for Client
type Option func(*Client)

// WithBackendURL overrides the backend-api endpoint, e.g. https://proxy.example.com/backend-api
func WithBackendURL(u *url.URL) Option {
	return func(c *Client) {
		c.backendURL = u
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of each request including the completion stream
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a backend client. baseURL may be empty when WithBackendURL is given.
func New(baseURL, accessToken string, opts ...Option) (*Client, error) {
	if accessToken == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "access token is not set")
	}

	c := &Client{
		token:      accessToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "webchatter/" + types.Version,
	}

	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid base url", goerr.V("base_url", baseURL))
		}
		base = u
		c.backendURL = base.JoinPath("backend-api")
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.backendURL == nil {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "neither backend url nor base url is set")
	}

	// the given client may be shared, e.g. http.DefaultClient
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	if base != nil {
		c.publicURL = base.JoinPath("public-api")
	} else {
		// public-api is a sibling of backend-api on the proxy
		pub := *c.backendURL
		pub.Path = path.Join(path.Dir(strings.TrimSuffix(pub.Path, "/")), "public-api")
		c.publicURL = &pub
	}

	return c, nil
}

// BackendURL returns the backend-api endpoint in use
func (c *Client) BackendURL() string {
	return c.backendURL.String()
}

// AccountStatus returns the account status
//
//	GET /backend-api/accounts/check
func (c *Client) AccountStatus(ctx context.Context) (*model.AccountStatus, error) {
	var out model.AccountStatus
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("accounts", "check"), nil, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get account status")
	}
	return &out, nil
}

// Models returns the models available to the account
//
//	GET /backend-api/models?history_and_training_disabled=false
func (c *Client) Models(ctx context.Context, historyDisabled bool) (*model.ModelList, error) {
	q := url.Values{"history_and_training_disabled": {strconv.FormatBool(historyDisabled)}}

	var out model.ModelList
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("models"), q, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get models")
	}
	return &out, nil
}

// BetaFeatures returns the beta feature switches of the account
//
//	GET /backend-api/settings/beta_features
func (c *Client) BetaFeatures(ctx context.Context) (map[string]bool, error) {
	out := map[string]bool{}
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("settings", "beta_features"), nil, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get beta features")
	}
	return out, nil
}

// ConversationLimit returns the message cap of gpt-4
//
//	GET /public-api/conversation_limit
func (c *Client) ConversationLimit(ctx context.Context) (*model.ConversationLimit, error) {
	var out model.ConversationLimit
	if err := c.do(ctx, http.MethodGet, c.publicURL.JoinPath("conversation_limit"), nil, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation limit")
	}
	return &out, nil
}

// ExportData requests a data export sent to the account email
//
//	POST /backend-api/accounts/data_export
func (c *Client) ExportData(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, c.backendURL.JoinPath("accounts", "data_export"), nil, nil, nil); err != nil {
		return goerr.Wrap(err, "failed to request data export")
	}
	return nil
}

// ListChats returns a page of conversations. limit <= 0 lets the backend choose.
//
//	GET /backend-api/conversations?offset=0&limit=3&order=updated
func (c *Client) ListChats(ctx context.Context, offset, limit int, order string) (*model.ChatList, error) {
	if order == "" {
		order = model.OrderUpdated
	}
	q := url.Values{
		"offset": {strconv.Itoa(offset)},
		"order":  {order},
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out model.ChatList
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("conversations"), q, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V("offset", offset), goerr.V("limit", limit))
	}
	return &out, nil
}

// GetChat returns a conversation with its whole mapping
//
//	GET /backend-api/conversation/{id}
func (c *Client) GetChat(ctx context.Context, chatID string) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("conversation", chatID), nil, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("chat_id", chatID))
	}
	return &out, nil
}

// ShareLinks returns the shared conversations
//
//	GET /backend-api/shared_conversations?order=created
func (c *Client) ShareLinks(ctx context.Context, order string) (*model.ShareLinkList, error) {
	if order == "" {
		order = model.OrderCreated
	}
	q := url.Values{"order": {order}}

	var out model.ShareLinkList
	if err := c.do(ctx, http.MethodGet, c.backendURL.JoinPath("shared_conversations"), q, nil, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to get share links")
	}
	return &out, nil
}

// EditTitle changes the title of a conversation
//
//	PATCH /backend-api/conversation/{id} {"title": "..."}
func (c *Client) EditTitle(ctx context.Context, chatID, title string) error {
	body := map[string]any{"title": title}
	if err := c.do(ctx, http.MethodPatch, c.backendURL.JoinPath("conversation", chatID), nil, body, nil); err != nil {
		return goerr.Wrap(err, "failed to edit title", goerr.V("chat_id", chatID))
	}
	return nil
}

// GenerateTitle lets the backend name the conversation from a message
//
//	POST /backend-api/conversation/gen_title/{id} {"message_id": "..."}
func (c *Client) GenerateTitle(ctx context.Context, chatID, messageID string) (string, error) {
	body := map[string]any{"message_id": messageID}

	var out struct {
		Title string `json:"title"`
	}
	if err := c.do(ctx, http.MethodPost, c.backendURL.JoinPath("conversation", "gen_title", chatID), nil, body, &out); err != nil {
		return "", goerr.Wrap(err, "failed to generate title", goerr.V("chat_id", chatID), goerr.V("message_id", messageID))
	}
	return out.Title, nil
}

// DeleteChat hides a conversation
//
//	PATCH /backend-api/conversation/{id} {"is_visible": false}
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	body := map[string]any{"is_visible": false}
	if err := c.do(ctx, http.MethodPatch, c.backendURL.JoinPath("conversation", chatID), nil, body, nil); err != nil {
		return goerr.Wrap(err, "failed to delete conversation", goerr.V("chat_id", chatID))
	}
	return nil
}

// Complete posts a message and reads the answer stream to the end
//
//	POST /backend-api/conversation (Accept: text/event-stream)
func (c *Client) Complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResult, error) {
	logger := ctxlog.From(ctx)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal completion request")
	}

	endpoint := c.backendURL.JoinPath("conversation")
	httpReq, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	logger.Debug("Sending completion request",
		"conversation_id", req.ConversationID,
		"parent_message_id", req.ParentMessageID,
		"model", req.Model,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send completion request", goerr.V("url", endpoint.String()))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, goerr.Wrap(err, "completion request rejected", goerr.V("conversation_id", req.ConversationID))
	}

	result, err := readCompletion(resp.Body)
	if err != nil {
		return nil, err
	}
	if result.ConversationID == "" {
		result.ConversationID = req.ConversationID
	}

	logger.Debug("Completion finished",
		"conversation_id", result.ConversationID,
		"message_id", result.Message.ID,
		"events", result.Events,
	)
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", u.String()))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do sends a JSON request and decodes a JSON response into out when out is not nil
func (c *Client) do(ctx context.Context, method string, u *url.URL, query url.Values, body, out any) error {
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, u, reader)
	if err != nil {
		return err
	}

	ctxlog.From(ctx).Debug("Sending backend request", "method", method, "path", u.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request", goerr.V("method", method), goerr.V("url", u.String()))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return goerr.Wrap(err, "failed to decode response", goerr.V("url", u.String()))
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	opts := []goerr.Option{
		goerr.V("status", resp.StatusCode),
		goerr.V("url", resp.Request.URL.String()),
		goerr.V("body", string(excerpt)),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return goerr.Wrap(model.ErrUnauthorized, "backend rejected access token", opts...)
	case http.StatusNotFound:
		return goerr.Wrap(model.ErrNotFound, "backend resource not found", opts...)
	default:
		return goerr.New("unexpected status code from backend", opts...)
	}
}

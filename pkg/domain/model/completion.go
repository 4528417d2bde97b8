package model

// Conversation actions
const (
	ActionNext    = "next"
	ActionVariant = "variant"
)

// DefaultModel is the model used when none is configured
const DefaultModel = "text-davinci-002-render-sha"

// CompletionRequest is the body of POST backend-api/conversation
type CompletionRequest struct {
	Action                     string           `json:"action"`
	Messages                   []RequestMessage `json:"messages"`
	ConversationID             string           `json:"conversation_id,omitempty"`
	ParentMessageID            string           `json:"parent_message_id"`
	Model                      string           `json:"model"`
	TimezoneOffsetMin          int              `json:"timezone_offset_min"`
	HistoryAndTrainingDisabled bool             `json:"history_and_training_disabled"`
}

// RequestMessage is a message sent by the user
type RequestMessage struct {
	ID       string         `json:"id"`
	Author   Author         `json:"author"`
	Content  Content        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// NewUserMessage builds a text message authored by the user
func NewUserMessage(id, text string) RequestMessage {
	return RequestMessage{
		ID:       id,
		Author:   Author{Role: RoleUser},
		Content:  TextContent(text),
		Metadata: map[string]any{},
	}
}

// CompletionEvent is a single event of the completion stream
type CompletionEvent struct {
	Message        *RawMessage `json:"message"`
	ConversationID string      `json:"conversation_id"`
	Error          any         `json:"error"`
}

// CompletionResult is the final state of a completion stream
type CompletionResult struct {
	ConversationID string
	Message        RawMessage
	Events         int
}

// Node converts the answer into a tree node
func (r *CompletionResult) Node() *Node {
	role := r.Message.Author.Role
	if role == "" {
		role = RoleAssistant
	}
	return &Node{
		ID:       r.Message.ID,
		Role:     role,
		Message:  r.Message.Content.Text(),
		Children: []string{},
	}
}

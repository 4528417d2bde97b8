package model

// ChatSummary is an entry of the conversation list
type ChatSummary struct {
	ConversationID string `json:"id"`
	Title          string `json:"title"`
	CreateTime     string `json:"create_time,omitempty"`
	UpdateTime     string `json:"update_time,omitempty"`
}

// ChatList is the response of backend-api/conversations
type ChatList struct {
	Items  []ChatSummary `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Conversation is the response of backend-api/conversation/{id}
type Conversation struct {
	ConversationID string              `json:"conversation_id"`
	Title          string              `json:"title"`
	CreateTime     float64             `json:"create_time"`
	UpdateTime     float64             `json:"update_time"`
	CurrentNode    string              `json:"current_node"`
	Mapping        map[string]*RawNode `json:"mapping"`
}

// ShareLink is a shared conversation entry
type ShareLink struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	ConversationID string `json:"conversation_id"`
	CreateTime     string `json:"create_time,omitempty"`
}

// ShareLinkList is the response of backend-api/shared_conversations
type ShareLinkList struct {
	Items []ShareLink `json:"items"`
	Total int         `json:"total"`
}

// Chat list orders accepted by the backend
const (
	OrderUpdated = "updated"
	OrderCreated = "created"
)

// Reply is the outcome of an exchange made through the relay
type Reply struct {
	ChatID string `json:"chat_id"`
	NodeID string `json:"node_id"`
	Answer string `json:"answer"`
}

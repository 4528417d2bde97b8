package model

// AccountStatus is the response of backend-api/accounts/check
type AccountStatus struct {
	AccountPlan AccountPlan `json:"account_plan"`
	UserCountry string      `json:"user_country,omitempty"`
	Features    []string    `json:"features,omitempty"`
}

// AccountPlan describes the subscription of the account
type AccountPlan struct {
	IsPaidSubscriptionActive       bool   `json:"is_paid_subscription_active"`
	SubscriptionPlan               string `json:"subscription_plan"`
	AccountUserRole                string `json:"account_user_role"`
	WasPaidCustomer                bool   `json:"was_paid_customer"`
	HasCustomerObject              bool   `json:"has_customer_object"`
	SubscriptionExpiresAtTimestamp *int64 `json:"subscription_expires_at_timestamp"`
}

// ModelList is the response of backend-api/models
type ModelList struct {
	Models     []ModelInfo     `json:"models"`
	Categories []ModelCategory `json:"categories"`
}

// ModelInfo describes a single model slug
type ModelInfo struct {
	Slug        string   `json:"slug"`
	MaxTokens   int      `json:"max_tokens"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// ModelCategory groups models shown in the web UI
type ModelCategory struct {
	Category             string `json:"category"`
	HumanCategoryName    string `json:"human_category_name"`
	SubscriptionLevel    string `json:"subscription_level"`
	DefaultModel         string `json:"default_model"`
	BrowsingModel        string `json:"browsing_model,omitempty"`
	CodeInterpreterModel string `json:"code_interpreter_model,omitempty"`
	PluginsModel         string `json:"plugins_model,omitempty"`
}

// CategoryNames returns the category name of each entry
func (l *ModelList) CategoryNames() []string {
	names := make([]string, 0, len(l.Categories))
	for _, c := range l.Categories {
		names = append(names, c.Category)
	}
	return names
}

// ConversationLimit is the response of public-api/conversation_limit
type ConversationLimit struct {
	MessageCap        int   `json:"message_cap"`
	MessageCapWindow  int   `json:"message_cap_window"`
	MessageDisclaimer Texts `json:"message_disclaimer"`
}

// Texts holds localized texts keyed by area
type Texts map[string]string

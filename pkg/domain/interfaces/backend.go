package interfaces

import (
	"context"

	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// Backend defines operations of the ChatGPT web backend
type Backend interface {
	AccountStatus(ctx context.Context) (*model.AccountStatus, error)
	Models(ctx context.Context, historyDisabled bool) (*model.ModelList, error)
	BetaFeatures(ctx context.Context) (map[string]bool, error)
	ConversationLimit(ctx context.Context) (*model.ConversationLimit, error)
	ExportData(ctx context.Context) error

	ListChats(ctx context.Context, offset, limit int, order string) (*model.ChatList, error)
	GetChat(ctx context.Context, chatID string) (*model.Conversation, error)
	ShareLinks(ctx context.Context, order string) (*model.ShareLinkList, error)
	EditTitle(ctx context.Context, chatID, title string) error
	GenerateTitle(ctx context.Context, chatID, messageID string) (string, error)
	DeleteChat(ctx context.Context, chatID string) error

	// Complete sends a message and waits until the answer stream is finished
	Complete(ctx context.Context, req *model.CompletionRequest) (*model.CompletionResult, error)
}

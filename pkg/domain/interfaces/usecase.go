package interfaces

import (
	"context"

	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// RelayUseCase defines the operations exposed by the local relay server
type RelayUseCase interface {
	AccountStatus(ctx context.Context) (*model.AccountStatus, error)
	ValidModels(ctx context.Context) ([]string, error)
	ChatList(ctx context.Context, offset, limit int, order string) ([]model.ChatSummary, error)

	// Start creates a new conversation from the first prompt
	Start(ctx context.Context, prompt string) (*model.Reply, error)
	// Continue asks below the current node of an existing conversation
	Continue(ctx context.Context, chatID, prompt string) (*model.Reply, error)
	// Regenerate asks again for the current question, optionally edited
	Regenerate(ctx context.Context, chatID, prompt string) (*model.Reply, error)
	// GoBack moves the conversation to the previous answer
	GoBack(ctx context.Context, chatID string) (*model.Reply, error)
	ChatLog(ctx context.Context, chatID string) ([]model.LogEntry, error)
	RenameChat(ctx context.Context, chatID, title string) error
	DeleteChat(ctx context.Context, chatID string) error
}

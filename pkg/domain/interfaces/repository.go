package interfaces

import (
	"context"

	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// ChatRepository persists conversation snapshots keyed by chat id.
// Load and Delete return model.ErrNotFound when the chat is unknown.
type ChatRepository interface {
	Save(ctx context.Context, snap *model.ChatSnapshot) error
	Load(ctx context.Context, chatID string) (*model.ChatSnapshot, error)
	Delete(ctx context.Context, chatID string) error
	Close() error
}

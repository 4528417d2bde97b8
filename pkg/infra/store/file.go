package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/infra/snapshot"
)

// File stores one snapshot file per chat in a directory
type File struct {
	dir    string
	format snapshot.Format
}

var _ interfaces.ChatRepository = (*File)(nil)

// NewFile creates a directory-backed repository
func NewFile(dir string, format snapshot.Format) (*File, error) {
	if format == "" {
		format = snapshot.FormatJSON
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("dir", dir))
	}
	return &File{dir: dir, format: format}, nil
}

func (f *File) path(chatID string) (string, error) {
	if chatID == "" || chatID != filepath.Base(chatID) || chatID == "." || chatID == ".." {
		return "", goerr.New("invalid chat id for file store", goerr.V("chat_id", chatID))
	}
	return filepath.Join(f.dir, chatID+"."+string(f.format)), nil
}

func (f *File) Save(ctx context.Context, snap *model.ChatSnapshot) error {
	p, err := f.path(snap.ChatID)
	if err != nil {
		return err
	}
	return snapshot.SaveFile(p, snap)
}

func (f *File) Load(ctx context.Context, chatID string) (*model.ChatSnapshot, error) {
	p, err := f.path(chatID)
	if err != nil {
		return nil, err
	}
	return snapshot.LoadFile(p)
}

func (f *File) Delete(ctx context.Context, chatID string) error {
	p, err := f.path(chatID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return goerr.Wrap(model.ErrNotFound, "snapshot file does not exist", goerr.V("path", p))
		}
		return goerr.Wrap(err, "failed to remove snapshot", goerr.V("path", p))
	}
	return nil
}

func (f *File) Close() error { return nil }

package snapshot

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", goerr.Wrap(model.ErrUnsupportedFormat, "unknown snapshot extension", goerr.V("path", path))
	}
}

// Encode writes snap to w
func Encode(w io.Writer, format Format, snap *model.ChatSnapshot) error {
	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(snap)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(snap)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(snap); err == nil {
			err = enc.Close()
		}
	default:
		return goerr.Wrap(model.ErrUnsupportedFormat, "cannot encode", goerr.V("format", format))
	}

	if err != nil {
		return goerr.Wrap(err, "failed to encode snapshot", goerr.V("format", format), goerr.V("chat_id", snap.ChatID))
	}
	return nil
}

// Decode reads a snapshot from r
func Decode(r io.Reader, format Format) (*model.ChatSnapshot, error) {
	var snap model.ChatSnapshot
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&snap)
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&snap)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&snap)
	default:
		return nil, goerr.Wrap(model.ErrUnsupportedFormat, "cannot decode", goerr.V("format", format))
	}

	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("format", format))
	}
	return &snap, nil
}

// SaveFile writes snap to path, choosing the format by extension
func SaveFile(path string, snap *model.ChatSnapshot) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return goerr.Wrap(err, "failed to create snapshot directory", goerr.V("dir", dir))
		}
	}

	// write to a temp file first so an interrupted save keeps the old snapshot
	tmp, err := os.CreateTemp(filepath.Dir(path), ".webchatter-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V("path", path))
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, format, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "failed to move snapshot into place", goerr.V("path", path))
	}
	return nil
}

// LoadFile reads a snapshot from path
func LoadFile(path string) (*model.ChatSnapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(model.ErrNotFound, "snapshot file does not exist", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open snapshot", goerr.V("path", path))
	}
	defer f.Close()

	snap, err := Decode(f, format)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load snapshot", goerr.V("path", path))
	}
	return snap, nil
}

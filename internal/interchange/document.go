package interchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"traycore/internal/blob"
)

// ContentType is recorded on stored interchange documents.
const ContentType = "application/yaml"

// MaxDocumentSize bounds how much of a stored document is read.
const MaxDocumentSize = 4 << 20

// ErrUnsupportedExtension rejects document keys that are not .yaml or .yml.
var ErrUnsupportedExtension = errors.New("interchange documents must use a .yaml or .yml extension")

// CheckExtension validates a document key or file name.
func CheckExtension(name string) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedExtension, name)
}

// ReadDocument loads a document from store.
func ReadDocument(ctx context.Context, store blob.Store, key string) ([]byte, error) {
	if err := CheckExtension(key); err != nil {
		return nil, err
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("read %s: document exceeds %d bytes", key, MaxDocumentSize)
	}
	return data, nil
}

// WriteDocument stores data at key, replacing any previous document.
func WriteDocument(ctx context.Context, store blob.Store, key string, data []byte, metadata map[string]string) (blob.Info, error) {
	if err := CheckExtension(key); err != nil {
		return blob.Info{}, err
	}
	info, err := store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    metadata,
		Overwrite:   true,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("write %s: %w", key, err)
	}
	return info, nil
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Static serves a fixed list of items.
type Static struct {
	items []Item
}

// NewStatic creates a provider over a copy of items.
func NewStatic(items []Item) (*Static, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	return &Static{items: append([]Item(nil), items...)}, nil
}

// LoadFile reads a catalog from a YAML or JSON file.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var items []Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &items)
	default:
		err = yaml.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	return NewStatic(items)
}

// Items returns a fresh copy so callers cannot reorder the source.
func (s *Static) Items(_ context.Context) ([]Item, error) {
	return append([]Item(nil), s.items...), nil
}

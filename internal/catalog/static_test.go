package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPreservesOrderAndReturnsCopies(t *testing.T) {
	ctx := context.Background()
	src := []Item{{ID: "Dune"}, {ID: "Emma"}, {ID: "Ulysses"}}
	p, err := NewStatic(src)
	require.NoError(t, err)

	src[0].ID = "mutated"
	items, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma", "Ulysses"}, ids(items))

	items[0], items[2] = items[2], items[0]
	again, err := p.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma", "Ulysses"}, ids(again))
}

func TestStaticEmptyCatalog(t *testing.T) {
	p, err := NewStatic(nil)
	require.NoError(t, err)

	items, err := p.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]Item{{ID: "Dune"}, {ID: "Emma"}}))
	assert.ErrorIs(t, Validate([]Item{{ID: "Dune"}, {ID: "Dune"}}), ErrDuplicateItem)
	assert.ErrorIs(t, Validate([]Item{{ID: ""}}), ErrMissingID)
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- bookName: Dune
  description: Desert planet
  author: Frank Herbert
  image: images/dune.jpg
- bookName: Emma
  author: Jane Austen
`), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)

	items, err := p.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Item{ID: "Dune", Description: "Desert planet", Author: "Frank Herbert", Image: "images/dune.jpg"}, items[0])
	assert.Equal(t, "Jane Austen", items[1].Author)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"bookName":"Dune","author":"Frank Herbert"}]`), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)

	items, err := p.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, ids(items))
}

func TestLoadFileRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- bookName: Dune\n- bookName: Dune\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrDuplicateItem)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

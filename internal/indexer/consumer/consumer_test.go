package consumer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
)

const (
	v1 = `{"docnames":["a"],"titles":["A"],"terms":{},"titleterms":{}}`
	v2 = `{"docnames":["a","b"],"titles":["A","B"],"terms":{},"titleterms":{}}`
)

func setup(t *testing.T) (*catalog.Catalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))
	e := indexer.NewEngine(indexer.EngineConfig{Name: "docs", Path: path})
	require.NoError(t, e.Load(context.Background()))
	return catalog.FromEngines(e), path
}

func event(t *testing.T, collection, checksum string) []byte {
	t.Helper()
	b, err := json.Marshal(publish.IndexPublishedEvent{Collection: collection, Checksum: checksum, BuildID: "b1"})
	require.NoError(t, err)
	return b
}

func TestHandleIndexPublishedReloads(t *testing.T) {
	cat, path := setup(t)
	require.NoError(t, os.WriteFile(path, []byte(v2), 0o644))

	handle := HandleIndexPublished(cat)
	require.NoError(t, handle(context.Background(), []byte("docs"), event(t, "docs", segment.Checksum([]byte(v2)))))

	e, err := cat.Get("docs")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Stats().Documents)
}

func TestHandleIndexPublishedSkipsLoadedChecksum(t *testing.T) {
	cat, path := setup(t)
	// the file changes but the event names the build already served
	require.NoError(t, os.WriteFile(path, []byte(v2), 0o644))

	handle := HandleIndexPublished(cat)
	require.NoError(t, handle(context.Background(), nil, event(t, "docs", segment.Checksum([]byte(v1)))))

	e, _ := cat.Get("docs")
	assert.Equal(t, 1, e.Stats().Documents)
}

func TestHandleIndexPublishedIgnoresUnknownAndGarbage(t *testing.T) {
	cat, _ := setup(t)
	handle := HandleIndexPublished(cat)

	assert.NoError(t, handle(context.Background(), nil, event(t, "elsewhere", "x")))
	assert.NoError(t, handle(context.Background(), nil, []byte("not json")))
}

func TestHandleIndexPublishedReturnsReloadError(t *testing.T) {
	cat, path := setup(t)
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

	handle := HandleIndexPublished(cat)
	err := handle(context.Background(), nil, event(t, "docs", "new"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs")

	e, _ := cat.Get("docs")
	assert.Equal(t, 1, e.Stats().Documents)
}

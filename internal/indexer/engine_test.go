package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	indexV1 = `Search.setIndex({docnames:["index"],titles:["Python tutorial"],terms:{list:0},titleterms:{python:0}})`
	indexV2 = `Search.setIndex({docnames:["index","rst/type_list"],titles:["Python tutorial","Lists"],terms:{list:[0,1]},titleterms:{python:0,list:1}})`
)

func writeIndex(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestEngineStoreBeforeLoad(t *testing.T) {
	e := NewEngine(EngineConfig{Name: "tutorial", Path: "/nonexistent/searchindex.js"})
	_, err := e.Store()
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
	assert.Equal(t, 0, e.Stats().Documents)
}

func TestEngineLoadFailsOnMissingFile(t *testing.T) {
	e := NewEngine(EngineConfig{Name: "tutorial", Path: filepath.Join(t.TempDir(), "missing.js")})
	err := e.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading collection tutorial")
}

func TestEngineReloadLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchindex.js")
	writeIndex(t, path, indexV1)

	e := NewEngine(EngineConfig{Name: "tutorial", Path: path, LoadTimeout: time.Second})
	var hookCalls atomic.Int32
	var lastPrev atomic.Pointer[index.Store]
	e.OnReload(func(name string, prev, cur *index.Store) {
		assert.Equal(t, "tutorial", name)
		lastPrev.Store(prev)
		hookCalls.Add(1)
	})

	require.NoError(t, e.Load(context.Background()))
	first, err := e.Store()
	require.NoError(t, err)
	assert.Equal(t, 1, first.NumDocs())
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Nil(t, lastPrev.Load())

	changed, err := e.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int32(1), hookCalls.Load())

	writeIndex(t, path, indexV2)
	changed, err = e.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int32(2), hookCalls.Load())
	assert.Same(t, first, lastPrev.Load())

	second, err := e.Store()
	require.NoError(t, err)
	assert.Equal(t, 2, second.NumDocs())
	// a store handed out earlier is unaffected by the swap
	assert.Equal(t, 1, first.NumDocs())

	writeIndex(t, path, `Search.setIndex({docnames:["a"]})`)
	_, err = e.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedIndex)
	kept, err := e.Store()
	require.NoError(t, err)
	assert.Same(t, second, kept)

	st := e.Stats()
	assert.Equal(t, "tutorial", st.Name)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, second.Checksum(), st.Checksum)
	assert.False(t, st.LoadedAt.IsZero())
}

func TestStaticEngine(t *testing.T) {
	store, err := index.NewStore(&index.Data{DocNames: []string{"a"}, Titles: []string{"A"}}, "")
	require.NoError(t, err)

	e := NewStaticEngine("mem", store)
	got, err := e.Store()
	require.NoError(t, err)
	assert.Same(t, store, got)

	_, err = e.Reload(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEngineWatchReloadsOnReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchindex.js")
	writeIndex(t, path, indexV1)

	e := NewEngine(EngineConfig{Name: "tutorial", Path: path})
	require.NoError(t, e.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, e.Watch(ctx))

	writeIndex(t, path, indexV2)
	assert.Eventually(t, func() bool {
		return e.Stats().Documents == 2
	}, 5*time.Second, 50*time.Millisecond)
}

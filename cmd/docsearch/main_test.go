package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const fixture = "../../internal/indexer/segment/testdata/searchindex.js"

func setup(t *testing.T, indexPath string) {
	t.Helper()
	loaded, err := config.Load("")
	require.NoError(t, err)
	cfg = loaded
	flags = globalFlags{indexPath: indexPath}
	qf = queryFlags{limit: 10}
	t.Cleanup(func() {
		cfg = nil
		flags = globalFlags{}
	})
}

func TestLocalQuery(t *testing.T) {
	setup(t, fixture)

	resp, err := localQuery(context.Background(), "python -list")
	require.NoError(t, err)
	assert.Equal(t, []string{"searchindex"}, resp.Collections)
	assert.EqualValues(t, 3, resp.TotalHits)

	var ids []int32
	for _, r := range resp.Results {
		ids = append(ids, r.DocID)
		assert.Equal(t, "searchindex", r.Collection)
	}
	assert.Equal(t, []int32{2, 4, 5}, ids)
}

func TestFetchDocument(t *testing.T) {
	setup(t, fixture)

	doc, err := fetchDocument(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "rst/type_list", doc.DocName)
	assert.Equal(t, "The list data type", doc.PlainTitle)

	_, err = fetchDocument(context.Background(), "99")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	_, err = fetchDocument(context.Background(), "-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestResolveIndex(t *testing.T) {
	setup(t, "")
	cfg.Index.DataDir = "/srv/docs"
	cfg.Index.Collections = []config.CollectionConfig{
		{Name: "tutorial", Path: "tutorial/searchindex.js"},
		{Name: "library", Path: "/abs/library.json"},
	}

	path, name, err := resolveIndex("", "tutorial")
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs/tutorial/searchindex.js", path)
	assert.Equal(t, "tutorial", name)

	path, _, err = resolveIndex("", "library")
	require.NoError(t, err)
	assert.Equal(t, "/abs/library.json", path)

	_, _, err = resolveIndex("", "missing")
	assert.ErrorIs(t, err, apperrors.ErrCollectionNotFound)

	_, _, err = resolveIndex("", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	path, name, err = resolveIndex("x/api.json", "")
	require.NoError(t, err)
	assert.Equal(t, "x/api.json", path)
	assert.Equal(t, "api", name)
}

func TestValidateFile(t *testing.T) {
	ok := validateFile(fixture)
	assert.Empty(t, ok.Error)
	assert.Equal(t, "js", ok.Format)
	assert.Equal(t, 8, ok.Documents)

	bad := filepath.Join(t.TempDir(), "broken.js")
	require.NoError(t, os.WriteFile(bad, []byte("Search.setIndex({docnames:[)"), 0o644))
	assert.NotEmpty(t, validateFile(bad).Error)
}

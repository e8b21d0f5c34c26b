package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	store, err := segment.Load("../../indexer/segment/testdata/searchindex.js")
	require.NoError(t, err)
	cat := catalog.FromEngines(indexer.NewStaticEngine("tutorial", store))

	srv := grpc.NewServer()
	NewService(cat, executor.NewCatalog(cat, executor.Options{}), tokenizer.Analyzer{}, 10, 100).Register(srv)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	go srv.Serve()
	t.Cleanup(srv.Stop)

	client, err := Dial(srv.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRPCSearch(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Search(ctx, &proto.SearchRequest{Query: "python list"})
	require.NoError(t, err)
	assert.Equal(t, int32(7), resp.TotalHits)
	ids := make([]int32, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.DocID
	}
	assert.Equal(t, []int32{0, 1, 3, 7, 2, 4, 5}, ids)
	assert.Equal(t, "tutorial", resp.Results[0].Collection)

	empty, err := c.Search(ctx, &proto.SearchRequest{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
}

func TestRPCDocumentLookupCollections(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	doc, err := c.Document(ctx, &proto.DocumentRequest{Collection: "tutorial", DocID: 7})
	require.NoError(t, err)
	assert.Equal(t, "rst/type_list", doc.DocName)
	assert.Equal(t, "The list data type", doc.PlainTitle)

	lookup, err := c.Lookup(ctx, &proto.LookupRequest{Collection: "tutorial", Term: "Python"})
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, lookup.Body)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, lookup.Title)

	cols, err := c.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, cols.Collections, 1)
	assert.Equal(t, int64(8), cols.Collections[0].Documents)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SERVING", health.Status)
}

func TestRPCErrorsKeepTheirKind(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	_, err := c.Document(ctx, &proto.DocumentRequest{Collection: "tutorial", DocID: 99})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))

	_, err = c.Search(ctx, &proto.SearchRequest{Query: "python", Collection: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrCollectionNotFound)

	_, err = c.Lookup(ctx, &proto.LookupRequest{Collection: "tutorial"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// answered errors do not trip the breaker
	for i := 0; i < 10; i++ {
		_, _ = c.Document(ctx, &proto.DocumentRequest{Collection: "tutorial", DocID: 99})
	}
	_, err = c.Collections(ctx)
	assert.NoError(t, err)
}

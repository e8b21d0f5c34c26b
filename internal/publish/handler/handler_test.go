package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

type stubPublisher struct {
	status string
	err    error
	got    *publish.Request
}

func (s *stubPublisher) Publish(_ context.Context, req *publish.Request) (*publish.Result, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &publish.Result{Collection: req.Collection, Status: s.status, BuildID: "b-1"}, nil
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestPublishCreatesAndReloads(t *testing.T) {
	pub := &stubPublisher{status: publish.StatusPublished}
	var reloaded []string
	h := New(pub, nil, func(_ context.Context, c string) error {
		reloaded = append(reloaded, c)
		return nil
	})

	rec := serve(h, http.MethodPut, "/api/v1/collections/docs/index?format=json", `{"docnames":[]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "docs", pub.got.Collection)
	assert.Equal(t, "json", pub.got.Format)
	assert.Equal(t, []string{"docs"}, reloaded)

	var res publish.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "b-1", res.BuildID)
}

func TestPublishUnchangedDoesNotReload(t *testing.T) {
	pub := &stubPublisher{status: publish.StatusUnchanged}
	called := false
	h := New(pub, nil, func(context.Context, string) error { called = true; return nil })

	rec := serve(h, http.MethodPut, "/api/v1/collections/docs/index", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
}

func TestPublishValidationAndErrors(t *testing.T) {
	h := New(&stubPublisher{}, nil, nil)
	rec := serve(h, http.MethodPut, "/api/v1/collections/docs/index?format=xml", ``)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "format")
	assert.Contains(t, fields, "body")

	h = New(&stubPublisher{err: apperrors.Malformedf("missing required field %q", "terms")}, nil, nil)
	rec = serve(h, http.MethodPut, "/api/v1/collections/docs/index", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "terms")
}

func TestBuildsWithoutHistory(t *testing.T) {
	h := New(&stubPublisher{}, nil, nil)
	rec := serve(h, http.MethodGet, "/api/v1/collections/docs/builds", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

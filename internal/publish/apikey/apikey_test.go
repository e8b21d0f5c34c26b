package apikey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scopedValidator map[string]*KeyInfo

func (s scopedValidator) Validate(_ context.Context, raw string) (*KeyInfo, error) {
	if raw == "broken" {
		return nil, errors.New("connection refused")
	}
	if raw == "old" {
		return nil, ErrExpiredKey
	}
	if info, ok := s[raw]; ok {
		return info, nil
	}
	return nil, ErrInvalidKey
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashKey(""))
	assert.Len(t, HashKey("secret"), 64)
	assert.NotEqual(t, HashKey("a"), HashKey("b"))
}

func TestGenerateRawKey(t *testing.T) {
	a, err := generateRawKey()
	require.NoError(t, err)
	b, err := generateRawKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 3+64)
}

func TestStaticValidator(t *testing.T) {
	s := NewStatic([]string{"alpha", "", "beta"})
	assert.Equal(t, 2, s.Len())

	info, err := s.Validate(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "config-3", info.ID)
	assert.True(t, info.Allows("anything"))

	_, err = s.Validate(context.Background(), "gamma")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestChain(t *testing.T) {
	scoped := scopedValidator{"tut": {ID: "7", Collection: "tutorial"}}
	c := Chain{NewStatic([]string{"alpha"}), scoped}

	info, err := c.Validate(context.Background(), "tut")
	require.NoError(t, err)
	assert.Equal(t, "7", info.ID)

	_, err = c.Validate(context.Background(), "old")
	assert.ErrorIs(t, err, ErrExpiredKey)

	_, err = c.Validate(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKeyInfoAllows(t *testing.T) {
	scoped := &KeyInfo{Collection: "tutorial"}
	assert.True(t, scoped.Allows("tutorial"))
	assert.False(t, scoped.Allows("library"))
	assert.False(t, scoped.Allows(""))
	assert.True(t, (&KeyInfo{}).Allows(""))
}

func TestCollectionFromPath(t *testing.T) {
	assert.Equal(t, "tutorial", collectionFromPath("/api/v1/collections/tutorial/index"))
	assert.Equal(t, "tutorial", collectionFromPath("/api/v1/collections/tutorial"))
	assert.Equal(t, "", collectionFromPath("/api/v1/cache/invalidate"))
}

func TestRequire(t *testing.T) {
	v := Chain{
		NewStatic([]string{"admin"}),
		scopedValidator{"tut": {ID: "7", Collection: "tutorial"}},
	}
	var seen *KeyInfo
	h := Require(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		path   string
		header string
		value  string
		want   int
	}{
		{"reads pass", http.MethodGet, "/api/v1/search", "", "", http.StatusNoContent},
		{"missing key", http.MethodPut, "/api/v1/collections/tutorial/index", "", "", http.StatusUnauthorized},
		{"bearer admin", http.MethodPut, "/api/v1/collections/tutorial/index", "Authorization", "Bearer admin", http.StatusNoContent},
		{"header scoped", http.MethodPost, "/api/v1/collections/tutorial/reload", "X-API-Key", "tut", http.StatusNoContent},
		{"scoped wrong collection", http.MethodPut, "/api/v1/collections/library/index", "X-API-Key", "tut", http.StatusForbidden},
		{"scoped global route", http.MethodPost, "/api/v1/cache/invalidate", "X-API-Key", "tut", http.StatusForbidden},
		{"unknown key", http.MethodPost, "/api/v1/cache/invalidate", "X-API-Key", "nope", http.StatusUnauthorized},
		{"expired key", http.MethodPost, "/api/v1/cache/invalidate", "X-API-Key", "old", http.StatusUnauthorized},
		{"backend failure", http.MethodPost, "/api/v1/cache/invalidate", "X-API-Key", "broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent && tt.method != http.MethodGet {
				require.NotNil(t, seen)
			}
		})
	}
}

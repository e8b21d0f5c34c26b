package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    publish.Request
		fields []string
	}{
		{"valid", publish.Request{Collection: "tutorial", Body: []byte("{}")}, nil},
		{"valid json format", publish.Request{Collection: "api-v2.1", Format: "json", Body: []byte("{}")}, nil},
		{"missing collection", publish.Request{Body: []byte("{}")}, []string{"collection"}},
		{"path traversal", publish.Request{Collection: "../etc", Body: []byte("{}")}, []string{"collection"}},
		{"bad format", publish.Request{Collection: "c", Format: "xml", Body: []byte("{}")}, []string{"format"}},
		{"empty body", publish.Request{Collection: "c"}, []string{"body"}},
		{"everything wrong", publish.Request{Collection: " ", Format: "yaml"}, []string{"collection", "format", "body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(&tt.req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"format": "bad", "body": "missing"}}
	assert.Equal(t, "body: missing; format: bad", err.Error())
}

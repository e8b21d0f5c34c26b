// Package validator checks publish requests before any index bytes are
// parsed, returning per-field error details.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
)

const (
	maxCollectionLength = 64
	MaxBodyBytes        = 64 << 20
)

var collectionName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateRequest checks the collection name, format and body size.
func ValidateRequest(req *publish.Request) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(req.Collection)
	switch {
	case name == "":
		errs["collection"] = "collection is required"
	case len(name) > maxCollectionLength:
		errs["collection"] = fmt.Sprintf("collection must be at most %d characters", maxCollectionLength)
	case !collectionName.MatchString(name):
		errs["collection"] = "collection may contain only letters, digits, '.', '_' and '-'"
	}
	if _, err := segment.ParseFormat(req.Format); err != nil {
		errs["format"] = "format must be js or json"
	}
	if len(req.Body) == 0 {
		errs["body"] = "index body is required"
	} else if len(req.Body) > MaxBodyBytes {
		errs["body"] = fmt.Sprintf("index body must be at most %d bytes", MaxBodyBytes)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

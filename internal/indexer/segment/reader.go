// Package segment reads and writes generated search-index files. Both the
// JavaScript form, Search.setIndex({...}), and a plain JSON object are
// accepted.
package segment

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/literal"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Format is the outer syntax of an index file.
type Format int

const (
	FormatJS Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "js"
}

// ParseFormat maps "js" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "js", "javascript", "":
		return FormatJS, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown index format %q: %w", s, apperrors.ErrInvalidInput)
	}
}

// FormatForPath picks the output format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatJS
}

// Segment is one decoded index file.
type Segment struct {
	Data     *index.Data
	Format   Format
	Checksum string
}

// ReadFile reads and decodes the index file at path.
func ReadFile(path string) (*Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index file %s: %w", path, err)
	}
	seg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", path, err)
	}
	return seg, nil
}

// Read decodes an index from r.
func Read(r io.Reader) (*Segment, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return Parse(raw)
}

// Checksum is the hex SHA-256 of raw index bytes.
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Parse decodes raw index bytes. The checksum covers the bytes as given.
func Parse(raw []byte) (*Segment, error) {
	body := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return nil, apperrors.Malformedf("empty index")
	}

	format := FormatJSON
	if body[0] != '{' {
		open := bytes.IndexByte(body, '(')
		if open < 0 {
			return nil, apperrors.Malformedf("expected an object or a Search.setIndex(...) call")
		}
		format = FormatJS
		body = body[open+1:]
	}

	var (
		v   literal.Value
		err error
	)
	if format == FormatJSON {
		v, err = literal.Parse(body)
	} else {
		var n int
		v, n, err = literal.ParsePrefix(body)
		if err == nil {
			rest := bytes.TrimSpace(body[n:])
			if !bytes.HasPrefix(rest, []byte(")")) {
				return nil, apperrors.Malformedf("missing ')' after index object")
			}
			rest = bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte(")")), []byte(";")))
			if len(rest) != 0 {
				return nil, apperrors.Malformedf("unexpected content after index call")
			}
		}
	}
	if err != nil {
		return nil, apperrors.Malformedf("%v", err)
	}

	data, err := Decode(v)
	if err != nil {
		return nil, err
	}
	return &Segment{Data: data, Format: format, Checksum: Checksum(raw)}, nil
}

// Load reads the index at path and builds a queryable store from it.
func Load(path string) (*index.Store, error) {
	seg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	store, err := index.NewStore(seg.Data, seg.Checksum)
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", path, err)
	}
	return store, nil
}

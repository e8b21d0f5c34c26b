package segment

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/literal"
)

const lockRetryDelay = 50 * time.Millisecond

// Marshal renders d in the given format. JavaScript output is wrapped in
// the Search.setIndex call browsers expect.
func Marshal(d *index.Data, format Format) []byte {
	v := Encode(d)
	var buf bytes.Buffer
	if format == FormatJSON {
		buf.Write(literal.Marshal(v, literal.JSON))
		buf.WriteByte('\n')
		return buf.Bytes()
	}
	buf.WriteString("Search.setIndex(")
	buf.Write(literal.Marshal(v, literal.JS))
	buf.WriteString(")")
	return buf.Bytes()
}

// Writer installs index files atomically. Concurrent writers, in this
// process or another, are serialised by a lock file next to the target.
type Writer struct {
	format Format
}

// NewWriter creates a Writer producing the given format.
func NewWriter(format Format) *Writer {
	return &Writer{format: format}
}

// WriteFile atomically replaces path with the encoding of d and returns
// the checksum of the bytes written. It writes to a .tmp file first and
// renames on success.
func (w *Writer) WriteFile(ctx context.Context, path string, d *index.Data) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := acquire(ctx, lock); err != nil {
		return "", err
	}
	defer func() { _ = lock.Unlock() }()

	payload := Marshal(d, w.format)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("setting index file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("renaming index file: %w", err)
	}
	return Checksum(payload), nil
}

func acquire(ctx context.Context, lock *flock.Flock) error {
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("another writer holds %s: %w", lock.Path(), ctx.Err())
	case err != nil:
		return fmt.Errorf("acquiring index lock %s: %w", lock.Path(), err)
	case !locked:
		return fmt.Errorf("acquiring index lock %s: not granted", lock.Path())
	}
	return nil
}

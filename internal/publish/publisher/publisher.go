// Package publisher installs generated indexes into collections. It
// validates the incoming file, replaces the collection's index atomically,
// records the build and announces it on Kafka so every searcher reloads.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Resolver maps a collection name to the index file that serves it.
type Resolver func(collection string) (string, error)

// History stores completed builds. It is optional.
type History interface {
	Record(ctx context.Context, res *publish.Result) error
}

// Options wires the optional collaborators of a Publisher.
type Options struct {
	History  History
	Producer kafka.Publisher
	Retry    resilience.RetryConfig
}

// Publisher coordinates index installation, build history and Kafka
// notification.
type Publisher struct {
	resolve  Resolver
	history  History
	producer kafka.Publisher
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. History and Producer in opts may be nil.
func New(resolve Resolver, opts Options) *Publisher {
	return &Publisher{
		resolve:  resolve,
		history:  opts.History,
		producer: opts.Producer,
		retry:    opts.Retry,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish validates req.Body as an index, writes it over the collection's
// file and announces the new build. When the re-encoded index is identical
// to the file already on disk nothing is written and the result status is
// "unchanged".
func (p *Publisher) Publish(ctx context.Context, req *publish.Request) (*publish.Result, error) {
	seg, err := segment.Parse(req.Body)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", req.Collection, err)
	}
	store, err := index.NewStore(seg.Data, "")
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", req.Collection, err)
	}

	path, err := p.resolve(req.Collection)
	if err != nil {
		return nil, err
	}
	format := segment.FormatForPath(path)
	if req.Format != "" {
		if format, err = segment.ParseFormat(req.Format); err != nil {
			return nil, err
		}
	}

	res := &publish.Result{
		Collection: req.Collection,
		Path:       path,
		Checksum:   segment.Checksum(segment.Marshal(seg.Data, format)),
		Documents:  store.NumDocs(),
		Terms:      store.NumTerms(),
	}
	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading current index %s: %w", path, err)
	}
	if err == nil && segment.Checksum(current) == res.Checksum {
		p.logger.Info("index unchanged, skipping publish",
			"collection", req.Collection,
			"checksum", res.Checksum,
		)
		res.Status = publish.StatusUnchanged
		return res, nil
	}

	sum, err := segment.NewWriter(format).WriteFile(ctx, path, seg.Data)
	if err != nil {
		return nil, fmt.Errorf("installing index for %s: %w", req.Collection, err)
	}
	res.Checksum = sum
	res.BuildID = uuid.NewString()
	res.Status = publish.StatusPublished
	res.PublishedAt = p.now()

	if p.history != nil {
		if err := p.history.Record(ctx, res); err != nil {
			p.logger.Error("failed to record build, index is installed",
				"collection", res.Collection,
				"build_id", res.BuildID,
				"error", err,
			)
		}
	}
	p.announce(ctx, res)

	p.logger.Info("index published",
		"collection", res.Collection,
		"build_id", res.BuildID,
		"documents", res.Documents,
		"terms", res.Terms,
		"checksum", res.Checksum,
	)
	return res, nil
}

func (p *Publisher) announce(ctx context.Context, res *publish.Result) {
	if p.producer == nil {
		return
	}
	event := kafka.Event{
		Key: res.Collection,
		Value: publish.IndexPublishedEvent{
			BuildID:     res.BuildID,
			Collection:  res.Collection,
			Path:        res.Path,
			Checksum:    res.Checksum,
			Documents:   res.Documents,
			PublishedAt: res.PublishedAt,
		},
	}
	err := resilience.Retry(ctx, "publish index event", p.retry, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		// Searchers with file watching enabled still pick the file up.
		p.logger.Error("failed to announce index on kafka",
			"collection", res.Collection,
			"build_id", res.BuildID,
			"error", err,
		)
	}
}

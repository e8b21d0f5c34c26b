// Package consumer reads index-published events from Kafka and reloads the
// affected collection so that every searcher replica converges on the new
// build.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Engines resolves a collection name to its engine. *catalog.Catalog
// satisfies it.
type Engines interface {
	Get(name string) (*indexer.Engine, error)
}

// ReloadConsumer wraps a Kafka consumer subscribed to index-published
// events.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a ReloadConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleIndexPublished returns a MessageHandler that reloads the collection
// named in each event. Events for collections this process does not serve,
// and events whose checksum is already loaded, are acknowledged without
// work. Undecodable events are dropped.
func HandleIndexPublished(engines Engines) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[publish.IndexPublishedEvent](value)
		if err != nil {
			logger.Error("failed to decode index published event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		engine, err := engines.Get(event.Collection)
		if errors.Is(err, apperrors.ErrCollectionNotFound) {
			logger.Debug("ignoring event for unserved collection", "collection", event.Collection)
			return nil
		}
		if err != nil {
			return err
		}

		if store, err := engine.Store(); err == nil && store.Checksum() == event.Checksum {
			logger.Debug("build already loaded",
				"collection", event.Collection,
				"build_id", event.BuildID,
			)
			return nil
		}

		if _, err := engine.Reload(ctx); err != nil {
			return fmt.Errorf("reloading collection %s for build %s: %w", event.Collection, event.BuildID, err)
		}

		loaded := engine.Stats().Checksum
		if loaded != event.Checksum {
			logger.Warn("reloaded index differs from announced build",
				"collection", event.Collection,
				"build_id", event.BuildID,
				"announced", event.Checksum,
				"loaded", loaded,
			)
			return nil
		}
		logger.Info("collection reloaded from published build",
			"collection", event.Collection,
			"build_id", event.BuildID,
			"documents", event.Documents,
		)
		return nil
	}
}

// Package analytics collects search and reload events, ships them over
// Kafka and aggregates them into dashboard statistics.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventReload     EventType = "index_reload"
)

// SearchEvent describes one answered query. Collection is empty for
// fan-out searches across every collection.
type SearchEvent struct {
	Type            EventType `json:"type"`
	Query           string    `json:"query"`
	Collection      string    `json:"collection,omitempty"`
	Terms           []string  `json:"terms"`
	TotalHits       int       `json:"total_hits"`
	Returned        int       `json:"returned"`
	LatencyMs       int64     `json:"latency_ms"`
	CacheHit        bool      `json:"cache_hit"`
	CollectionCount int       `json:"collection_count"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
}

// ReloadEvent records a collection switching to a new index.
type ReloadEvent struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	Checksum   string    `json:"checksum"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event any)
}

// Trackers fans each event out to every tracker in order.
type Trackers []Tracker

func (ts Trackers) Track(event any) {
	for _, t := range ts {
		t.Track(event)
	}
}

// EventKey picks the Kafka partition key so one collection's events stay
// ordered.
func EventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		if e.Collection != "" {
			return e.Collection
		}
	case ReloadEvent:
		return e.Collection
	}
	return "analytics"
}

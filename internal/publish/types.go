// Package publish defines the request/response types and Kafka event schema
// used when a freshly generated index is installed into a collection.
package publish

import "time"

const (
	StatusPublished = "published"
	StatusUnchanged = "unchanged"
)

// Request carries a complete index file destined for one collection.
// Format is "js" or "json"; empty means the format of the target file.
type Request struct {
	Collection string
	Format     string
	Body       []byte
}

// Result is returned to the caller after an index is installed.
type Result struct {
	BuildID     string    `json:"build_id"`
	Collection  string    `json:"collection"`
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at"`
}

// IndexPublishedEvent is the Kafka message produced after an index file has
// been replaced on disk. Searchers reload the collection when they see it.
type IndexPublishedEvent struct {
	BuildID     string    `json:"build_id"`
	Collection  string    `json:"collection"`
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	Documents   int       `json:"documents"`
	PublishedAt time.Time `json:"published_at"`
}

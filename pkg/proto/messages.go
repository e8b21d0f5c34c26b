// Package proto defines the message types exchanged over the DocSearch RPC
// service (see pkg/grpc). They are plain structs with JSON tags; the
// method names are listed as constants below.
package proto

// Method names served by the search process.
const (
	MethodSearch      = "DocSearch.Search"
	MethodDocument    = "DocSearch.Document"
	MethodLookup      = "DocSearch.Lookup"
	MethodCollections = "DocSearch.Collections"
	MethodHealth      = "DocSearch.Health"
)

// HealthCheckResponse mirrors the gRPC health check states.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING
}

// ---------- Search ----------

// SearchRequest is the input to DocSearch.Search. An empty Collection
// searches every loaded collection.
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	Limit      int32  `json:"limit"`
}

// SearchResponse is the output of DocSearch.Search.
type SearchResponse struct {
	Query       string         `json:"query"`
	Collections []string       `json:"collections"`
	TotalHits   int32          `json:"total_hits"`
	Results     []SearchResult `json:"results"`
	LatencyMs   int64          `json:"latency_ms"`
}

// SearchResult is a single ranked document.
type SearchResult struct {
	Collection string  `json:"collection"`
	DocID      int32   `json:"doc_id"`
	DocName    string  `json:"docname"`
	Title      string  `json:"title"`
	Score      int32   `json:"score"`
	Weight     float64 `json:"weight"`
}

// ---------- Documents ----------

// DocumentRequest is the input to DocSearch.Document.
type DocumentRequest struct {
	Collection string `json:"collection"`
	DocID      int32  `json:"doc_id"`
}

// DocumentResponse describes one document.
type DocumentResponse struct {
	Collection string    `json:"collection"`
	DocID      int32     `json:"doc_id"`
	DocName    string    `json:"docname"`
	FileName   string    `json:"filename,omitempty"`
	Title      string    `json:"title"`
	PlainTitle string    `json:"plain_title"`
	TOC        []Section `json:"toc"`
}

// Section is one table-of-contents entry.
type Section struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor,omitempty"`
	Depth  int32  `json:"depth"`
}

// LookupRequest is the input to DocSearch.Lookup.
type LookupRequest struct {
	Collection string `json:"collection"`
	Term       string `json:"term"`
}

// LookupResponse carries the body and title postings of a normalised term.
type LookupResponse struct {
	Collection string  `json:"collection"`
	Term       string  `json:"term"`
	Normalized string  `json:"normalized"`
	Body       []int32 `json:"body"`
	Title      []int32 `json:"title"`
}

// ---------- Collections ----------

// CollectionsRequest takes no parameters.
type CollectionsRequest struct{}

// CollectionsResponse lists every collection served by the process.
type CollectionsResponse struct {
	Collections []CollectionStat `json:"collections"`
}

// CollectionStat holds per-collection statistics.
type CollectionStat struct {
	Name      string `json:"name"`
	Documents int64  `json:"documents"`
	Terms     int64  `json:"terms"`
	Checksum  string `json:"checksum"`
	LoadedAt  int64  `json:"loaded_at"`
}

package index

import "github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/literal"

// DocID identifies a document by its position in the index's docnames list.
type DocID int

// Section is one entry of a document's table of contents. Depth 0 is the
// document itself; Anchor is empty for it.
type Section struct {
	Title  string `json:"title"`
	Anchor string `json:"anchor,omitempty"`
	Depth  int    `json:"depth"`
}

// TermPostings is one term key together with the documents listed for it,
// in the order the index file lists them.
type TermPostings struct {
	Term string
	Docs []DocID
}

// TitleRef points a section title at a document, optionally at an anchor
// inside it. HasAnchor distinguishes an empty anchor from a null one.
type TitleRef struct {
	Doc       DocID
	Anchor    string
	HasAnchor bool
}

// TitleEntry is one key of the alltitles table.
type TitleEntry struct {
	Title string
	Refs  []TitleRef
}

// Field names of the index format.
const (
	FieldDocNames   = "docnames"
	FieldFileNames  = "filenames"
	FieldTitles     = "titles"
	FieldTerms      = "terms"
	FieldTitleTerms = "titleterms"
	FieldAllTitles  = "alltitles"
)

// Data is the format-level content of an index file. Fields the service
// does not interpret are kept in Extra and Order records where every
// top-level field appeared, so the file can be written back unchanged.
type Data struct {
	DocNames   []string
	FileNames  []string
	Titles     []string
	Terms      []TermPostings
	TitleTerms []TermPostings
	AllTitles  []TitleEntry

	HasFileNames bool
	HasAllTitles bool

	Extra []literal.Member
	Order []string
}

// FieldOrder returns the top-level field order used when encoding d.
func (d *Data) FieldOrder() []string {
	if len(d.Order) > 0 {
		return d.Order
	}
	order := []string{FieldDocNames}
	if d.HasFileNames {
		order = append(order, FieldFileNames)
	}
	for _, m := range d.Extra {
		order = append(order, m.Key)
	}
	order = append(order, FieldTerms, FieldTitles, FieldTitleTerms)
	if d.HasAllTitles {
		order = append(order, FieldAllTitles)
	}
	return order
}

// ExtraField returns an uninterpreted top-level field.
func (d *Data) ExtraField(key string) (literal.Value, bool) {
	for _, m := range d.Extra {
		if m.Key == key {
			return m.Value, true
		}
	}
	return literal.Value{}, false
}

package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type builderDoc struct {
	name     string
	file     string
	title    string
	sections []TitleRef
	headings []string
}

// Builder assembles index Data from raw document text using the same
// analyzer queries are normalised with. A term found in a document's title
// is recorded as a title posting only, never also as a body posting for
// that document.
type Builder struct {
	mu       sync.Mutex
	analyzer tokenizer.Analyzer
	docs     []builderDoc
	body     map[string]map[DocID]struct{}
	title    map[string]map[DocID]struct{}
}

func NewBuilder(analyzer tokenizer.Analyzer) *Builder {
	return &Builder{
		analyzer: analyzer,
		body:     make(map[string]map[DocID]struct{}),
		title:    make(map[string]map[DocID]struct{}),
	}
}

// AddDocument indexes one document and returns its identifier. title may
// contain HTML markup; only its text is tokenised.
func (b *Builder) AddDocument(name, file, title, body string) DocID {
	titleTerms := b.analyzer.Terms(PlainText(title))
	bodyTerms := b.analyzer.Terms(body)

	b.mu.Lock()
	defer b.mu.Unlock()

	id := DocID(len(b.docs))
	b.docs = append(b.docs, builderDoc{name: name, file: file, title: title})

	inTitle := make(map[string]struct{}, len(titleTerms))
	for _, term := range titleTerms {
		inTitle[term] = struct{}{}
		addPosting(b.title, term, id)
	}
	for _, term := range bodyTerms {
		if _, ok := inTitle[term]; ok {
			continue
		}
		addPosting(b.body, term, id)
	}
	return id
}

// AddSection records an anchored section heading inside doc.
func (b *Builder) AddSection(doc DocID, heading, anchor string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(doc) < 0 || int(doc) >= len(b.docs) {
		return
	}
	d := &b.docs[doc]
	d.sections = append(d.sections, TitleRef{Doc: doc, Anchor: anchor, HasAnchor: true})
	d.headings = append(d.headings, heading)
}

func addPosting(m map[string]map[DocID]struct{}, term string, doc DocID) {
	docs, ok := m[term]
	if !ok {
		docs = make(map[DocID]struct{})
		m[term] = docs
	}
	docs[doc] = struct{}{}
}

// DocCount returns the number of documents added so far.
func (b *Builder) DocCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}

// Build snapshots the builder into Data. Terms are sorted and postings
// ascending; the builder may keep accepting documents afterwards.
func (b *Builder) Build() *Data {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := &Data{
		DocNames:     make([]string, len(b.docs)),
		FileNames:    make([]string, len(b.docs)),
		Titles:       make([]string, len(b.docs)),
		Terms:        snapshot(b.body),
		TitleTerms:   snapshot(b.title),
		HasFileNames: true,
	}

	byHeading := make(map[string]int)
	for i, doc := range b.docs {
		d.DocNames[i] = doc.name
		d.FileNames[i] = doc.file
		d.Titles[i] = doc.title
		for j, heading := range doc.headings {
			idx, ok := byHeading[heading]
			if !ok {
				idx = len(d.AllTitles)
				byHeading[heading] = idx
				d.AllTitles = append(d.AllTitles, TitleEntry{Title: heading})
			}
			d.AllTitles[idx].Refs = append(d.AllTitles[idx].Refs, doc.sections[j])
		}
	}
	d.HasAllTitles = len(d.AllTitles) > 0
	return d
}

func snapshot(m map[string]map[DocID]struct{}) []TermPostings {
	entries := make([]TermPostings, 0, len(m))
	for term, docs := range m {
		ids := make([]DocID, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		entries = append(entries, TermPostings{Term: term, Docs: ids})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

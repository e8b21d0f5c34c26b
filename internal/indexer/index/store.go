package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var allTags = regexp.MustCompile(`<[^>]+>`)

// Store is a loaded, immutable index. All methods are safe for concurrent
// use without locking.
type Store struct {
	data     *Data
	body     map[string][]DocID
	title    map[string][]DocID
	terms    []string
	plain    []string
	toc      [][]Section
	checksum string
}

// NewStore validates data and builds the lookup tables. The store keeps a
// reference to data; callers must not modify it afterwards. An empty
// checksum is replaced by a fingerprint of the content.
func NewStore(data *Data, checksum string) (*Store, error) {
	if data == nil {
		return nil, apperrors.Malformedf("no index data")
	}
	n := len(data.DocNames)
	if len(data.Titles) != n {
		return nil, apperrors.Malformedf("%d titles for %d documents", len(data.Titles), n)
	}
	if data.HasFileNames && len(data.FileNames) != n {
		return nil, apperrors.Malformedf("%d filenames for %d documents", len(data.FileNames), n)
	}

	body, err := buildPostings(FieldTerms, data.Terms, n)
	if err != nil {
		return nil, err
	}
	title, err := buildPostings(FieldTitleTerms, data.TitleTerms, n)
	if err != nil {
		return nil, err
	}

	s := &Store{
		data:     data,
		body:     body,
		title:    title,
		plain:    make([]string, n),
		toc:      make([][]Section, n),
		checksum: checksum,
	}
	for i, t := range data.Titles {
		s.plain[i] = PlainText(t)
		s.toc[i] = []Section{{Title: s.plain[i], Depth: 0}}
	}
	for _, entry := range data.AllTitles {
		for _, ref := range entry.Refs {
			if int(ref.Doc) < 0 || int(ref.Doc) >= n {
				return nil, apperrors.Malformedf("%s %q references unknown document %d", FieldAllTitles, entry.Title, ref.Doc)
			}
			if !ref.HasAnchor || ref.Anchor == "" {
				continue
			}
			s.toc[ref.Doc] = append(s.toc[ref.Doc], Section{Title: entry.Title, Anchor: ref.Anchor, Depth: 1})
		}
	}

	seen := make(map[string]struct{}, len(body)+len(title))
	for t := range body {
		seen[t] = struct{}{}
	}
	for t := range title {
		seen[t] = struct{}{}
	}
	s.terms = make([]string, 0, len(seen))
	for t := range seen {
		s.terms = append(s.terms, t)
	}
	sort.Strings(s.terms)

	if s.checksum == "" {
		s.checksum = fingerprint(data)
	}
	return s, nil
}

func buildPostings(field string, entries []TermPostings, numDocs int) (map[string][]DocID, error) {
	out := make(map[string][]DocID, len(entries))
	for _, e := range entries {
		if e.Term == "" {
			return nil, apperrors.Malformedf("%s: empty term key", field)
		}
		if _, dup := out[e.Term]; dup {
			return nil, apperrors.Malformedf("%s: duplicate term %q", field, e.Term)
		}
		if len(e.Docs) == 0 {
			return nil, apperrors.Malformedf("%s: term %q has no documents", field, e.Term)
		}
		docs := make([]DocID, 0, len(e.Docs))
		for _, d := range e.Docs {
			if int(d) < 0 || int(d) >= numDocs {
				return nil, apperrors.Malformedf("%s: term %q references unknown document %d", field, e.Term, d)
			}
			docs = append(docs, d)
		}
		out[e.Term] = sortUnique(docs)
	}
	return out, nil
}

func sortUnique(docs []DocID) []DocID {
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })
	w := 0
	for i, d := range docs {
		if i > 0 && d == docs[w-1] {
			continue
		}
		docs[w] = d
		w++
	}
	return docs[:w]
}

// Lookup returns the documents whose body or title contains term, in
// ascending order. The result is empty, not nil, when term is absent.
func (s *Store) Lookup(term string) []DocID {
	b, t := s.body[term], s.title[term]
	out := make([]DocID, 0, len(b)+len(t))
	i, j := 0, 0
	for i < len(b) || j < len(t) {
		switch {
		case j >= len(t) || (i < len(b) && b[i] < t[j]):
			out = append(out, b[i])
			i++
		case i >= len(b) || t[j] < b[i]:
			out = append(out, t[j])
			j++
		default:
			out = append(out, b[i])
			i++
			j++
		}
	}
	return out
}

// LookupBody returns the documents whose body contains term.
func (s *Store) LookupBody(term string) []DocID {
	return clone(s.body[term])
}

// LookupTitle returns the documents whose title contains term.
func (s *Store) LookupTitle(term string) []DocID {
	return clone(s.title[term])
}

func clone(docs []DocID) []DocID {
	out := make([]DocID, len(docs))
	copy(out, docs)
	return out
}

// HasDoc reports whether doc is a valid document identifier.
func (s *Store) HasDoc(doc DocID) bool {
	return int(doc) >= 0 && int(doc) < len(s.data.DocNames)
}

func (s *Store) notFound(doc DocID) error {
	return fmt.Errorf("document %d of %d: %w", doc, len(s.data.DocNames), apperrors.ErrDocumentNotFound)
}

// TitleOf returns the document title as stored, markup included.
func (s *Store) TitleOf(doc DocID) (string, error) {
	if !s.HasDoc(doc) {
		return "", s.notFound(doc)
	}
	return s.data.Titles[doc], nil
}

// PlainTitleOf returns the document title with markup removed.
func (s *Store) PlainTitleOf(doc DocID) (string, error) {
	if !s.HasDoc(doc) {
		return "", s.notFound(doc)
	}
	return s.plain[doc], nil
}

// TocOf returns the document's sections: the document itself first, then
// every anchored section title in index order.
func (s *Store) TocOf(doc DocID) ([]Section, error) {
	if !s.HasDoc(doc) {
		return nil, s.notFound(doc)
	}
	out := make([]Section, len(s.toc[doc]))
	copy(out, s.toc[doc])
	return out, nil
}

// DocName returns the document's source name, e.g. "rst/type_list".
func (s *Store) DocName(doc DocID) (string, error) {
	if !s.HasDoc(doc) {
		return "", s.notFound(doc)
	}
	return s.data.DocNames[doc], nil
}

// FileName returns the document's source file, or "" if the index
// does not record file names.
func (s *Store) FileName(doc DocID) (string, error) {
	if !s.HasDoc(doc) {
		return "", s.notFound(doc)
	}
	if !s.data.HasFileNames {
		return "", nil
	}
	return s.data.FileNames[doc], nil
}

func (s *Store) NumDocs() int { return len(s.data.DocNames) }

// NumTerms counts distinct keys across body and title postings.
func (s *Store) NumTerms() int { return len(s.terms) }

// Terms returns every distinct term in ascending order.
func (s *Store) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// TermsContaining returns, in ascending order, the terms that contain sub
// without being equal to it.
func (s *Store) TermsContaining(sub string) []string {
	var out []string
	if sub == "" {
		return out
	}
	for _, t := range s.terms {
		if t != sub && strings.Contains(t, sub) {
			out = append(out, t)
		}
	}
	return out
}

// Checksum identifies the index content; it changes whenever the file does.
func (s *Store) Checksum() string { return s.checksum }

// Data returns the format-level content the store was built from.
func (s *Store) Data() *Data { return s.data }

// PlainText strips HTML tags from s, decodes entities and collapses
// whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	s = allTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func fingerprint(d *Data) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	write(d.DocNames...)
	write(d.Titles...)
	for _, group := range [][]TermPostings{d.Terms, d.TitleTerms} {
		for _, e := range group {
			write(e.Term)
			for _, doc := range e.Docs {
				write(strconv.Itoa(int(doc)))
			}
		}
		write("|")
	}
	return hex.EncodeToString(h.Sum(nil))
}

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func tutorialData() *Data {
	return &Data{
		DocNames: []string{"index", "rst/datatypes", "rst/type_list"},
		Titles: []string{
			"Python to learn Python",
			"Python data types",
			`The <code class="docutils literal notranslate"><span class="pre">list</span></code> data type`,
		},
		Terms: []TermPostings{
			{Term: "python", Docs: []DocID{2}},
			{Term: "list", Docs: []DocID{1, 0}},
			{Term: "statement", Docs: []DocID{0, 2, 0}},
		},
		TitleTerms: []TermPostings{
			{Term: "python", Docs: []DocID{0, 1}},
			{Term: "list", Docs: []DocID{2}},
			{Term: "data", Docs: []DocID{1, 2}},
		},
		AllTitles: []TitleEntry{
			{Title: "Overview", Refs: []TitleRef{{Doc: 2, Anchor: "overview", HasAnchor: true}}},
			{Title: "Python data types", Refs: []TitleRef{{Doc: 1}}},
			{Title: "Slices", Refs: []TitleRef{{Doc: 2, Anchor: "slices", HasAnchor: true}}},
		},
		HasAllTitles: true,
	}
}

func TestStoreLookup(t *testing.T) {
	s, err := NewStore(tutorialData(), "abc")
	require.NoError(t, err)

	assert.Equal(t, []DocID{0, 1, 2}, s.Lookup("python"))
	assert.Equal(t, []DocID{0, 1, 2}, s.Lookup("list"))
	assert.Equal(t, []DocID{0, 2}, s.Lookup("statement"))
	assert.Equal(t, []DocID{2}, s.LookupBody("python"))
	assert.Equal(t, []DocID{0, 1}, s.LookupTitle("python"))

	missing := s.Lookup("javascript")
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
	assert.Empty(t, s.LookupBody("javascript"))
}

func TestStoreLookupReturnsCopies(t *testing.T) {
	s, err := NewStore(tutorialData(), "")
	require.NoError(t, err)

	got := s.LookupTitle("python")
	got[0] = 99
	assert.Equal(t, []DocID{0, 1}, s.LookupTitle("python"))
}

func TestStoreTitlesAndToc(t *testing.T) {
	s, err := NewStore(tutorialData(), "")
	require.NoError(t, err)

	title, err := s.TitleOf(2)
	require.NoError(t, err)
	assert.Contains(t, title, "<code")

	plain, err := s.PlainTitleOf(2)
	require.NoError(t, err)
	assert.Equal(t, "The list data type", plain)

	toc, err := s.TocOf(2)
	require.NoError(t, err)
	assert.Equal(t, []Section{
		{Title: "The list data type", Depth: 0},
		{Title: "Overview", Anchor: "overview", Depth: 1},
		{Title: "Slices", Anchor: "slices", Depth: 1},
	}, toc)

	toc, err = s.TocOf(1)
	require.NoError(t, err)
	assert.Len(t, toc, 1)

	name, err := s.DocName(1)
	require.NoError(t, err)
	assert.Equal(t, "rst/datatypes", name)

	file, err := s.FileName(1)
	require.NoError(t, err)
	assert.Empty(t, file)
}

func TestStoreUnknownDocument(t *testing.T) {
	s, err := NewStore(tutorialData(), "")
	require.NoError(t, err)

	for _, doc := range []DocID{-1, 3, 100} {
		_, err := s.TitleOf(doc)
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
		_, err = s.TocOf(doc)
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
		_, err = s.DocName(doc)
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	}
}

func TestStoreCounts(t *testing.T) {
	s, err := NewStore(tutorialData(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, s.NumDocs())
	assert.Equal(t, 4, s.NumTerms())
	assert.Equal(t, []string{"data", "list", "python", "statement"}, s.Terms())
	assert.Len(t, s.Checksum(), 64)
}

func TestNewStoreRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Data)
		msg    string
	}{
		{"title count", func(d *Data) { d.Titles = d.Titles[:2] }, "2 titles for 3 documents"},
		{"filename count", func(d *Data) { d.HasFileNames = true; d.FileNames = []string{"a"} }, "1 filenames"},
		{"unknown doc", func(d *Data) { d.Terms[0].Docs = []DocID{7} }, "unknown document 7"},
		{"negative doc", func(d *Data) { d.TitleTerms[0].Docs = []DocID{-1} }, "unknown document -1"},
		{"empty term", func(d *Data) { d.Terms[1].Term = "" }, "empty term key"},
		{"empty postings", func(d *Data) { d.Terms[0].Docs = []DocID{} }, "has no documents"},
		{"empty title postings", func(d *Data) { d.TitleTerms[0].Docs = nil }, "has no documents"},
		{"duplicate term", func(d *Data) { d.Terms[1].Term = "python" }, `duplicate term "python"`},
		{"alltitles doc", func(d *Data) { d.AllTitles[0].Refs[0].Doc = 5 }, "unknown document 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tutorialData()
			tt.mutate(d)
			_, err := NewStore(d, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedIndex)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewStoreKeepsDataOrder(t *testing.T) {
	d := tutorialData()
	_, err := NewStore(d, "")
	require.NoError(t, err)
	assert.Equal(t, []DocID{1, 0}, d.Terms[1].Docs)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a < b & c", PlainText("a &lt; <em>b</em> &amp;   c"))
	assert.Equal(t, "plain title", PlainText(" plain\ttitle "))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(tokenizer.Analyzer{})
	intro := b.AddDocument("index", "index.rst", "Python tutorial", "Learn Python with lists.")
	lists := b.AddDocument("rst/type_list", "rst/type_list.rst", "The <code>list</code> type", "A list holds Python objects.")
	b.AddSection(lists, "Overview", "overview")
	b.AddSection(intro, "Overview", "overview")
	b.AddSection(99, "ignored", "x")
	assert.Equal(t, 2, b.DocCount())

	d := b.Build()
	assert.Equal(t, []string{"index", "rst/type_list"}, d.DocNames)
	assert.True(t, d.HasFileNames)
	require.Len(t, d.AllTitles, 1)
	assert.Len(t, d.AllTitles[0].Refs, 2)

	s, err := NewStore(d, "")
	require.NoError(t, err)

	// title words are not repeated as body postings for the same document
	assert.Equal(t, []DocID{0}, s.LookupTitle("python"))
	assert.Equal(t, []DocID{1}, s.LookupBody("python"))
	assert.Equal(t, []DocID{1}, s.LookupTitle("list"))
	assert.Equal(t, []DocID{0}, s.LookupBody("list"))
	assert.Equal(t, []DocID{0, 1}, s.Lookup("python"))

	for i := 1; i < len(d.Terms); i++ {
		assert.Less(t, d.Terms[i-1].Term, d.Terms[i].Term)
	}
}

func TestStoreTermsContaining(t *testing.T) {
	s, err := NewStore(tutorialData(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"statement"}, s.TermsContaining("state"))
	assert.Equal(t, []string{"data", "statement"}, s.TermsContaining("at"))
	assert.Empty(t, s.TermsContaining("list"), "exact term is not a partial match")
	assert.Empty(t, s.TermsContaining(""))
}

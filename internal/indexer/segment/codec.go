package segment

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/literal"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Decode interprets a parsed index object. Postings given as a bare
// document index are normalised to one-element lists.
func Decode(v literal.Value) (*index.Data, error) {
	if v.Kind != literal.Object {
		return nil, apperrors.Malformedf("index root: expected object, got %s", v.Kind)
	}
	d := &index.Data{}
	seen := make(map[string]struct{}, len(v.Members))
	var err error
	for _, m := range v.Members {
		if _, dup := seen[m.Key]; dup {
			return nil, apperrors.Malformedf("duplicate field %q", m.Key)
		}
		seen[m.Key] = struct{}{}
		d.Order = append(d.Order, m.Key)

		switch m.Key {
		case index.FieldDocNames:
			d.DocNames, err = decodeStrings(m.Key, m.Value)
		case index.FieldFileNames:
			d.FileNames, err = decodeStrings(m.Key, m.Value)
			d.HasFileNames = true
		case index.FieldTitles:
			d.Titles, err = decodeStrings(m.Key, m.Value)
		case index.FieldTerms:
			d.Terms, err = decodePostings(m.Key, m.Value)
		case index.FieldTitleTerms:
			d.TitleTerms, err = decodePostings(m.Key, m.Value)
		case index.FieldAllTitles:
			d.AllTitles, err = decodeAllTitles(m.Value)
			d.HasAllTitles = true
		default:
			d.Extra = append(d.Extra, m)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, required := range []string{index.FieldDocNames, index.FieldTitles, index.FieldTerms, index.FieldTitleTerms} {
		if _, ok := seen[required]; !ok {
			return nil, apperrors.Malformedf("missing required field %q", required)
		}
	}
	return d, nil
}

func decodeStrings(field string, v literal.Value) ([]string, error) {
	ss, ok := v.Strings()
	if !ok {
		return nil, apperrors.Malformedf("%s: expected array of strings", field)
	}
	return ss, nil
}

func decodePostings(field string, v literal.Value) ([]index.TermPostings, error) {
	if v.Kind != literal.Object {
		return nil, apperrors.Malformedf("%s: expected object, got %s", field, v.Kind)
	}
	out := make([]index.TermPostings, 0, len(v.Members))
	for _, m := range v.Members {
		docs, err := decodeDocs(m.Value)
		if err != nil {
			return nil, apperrors.Malformedf("%s[%q]: %v", field, m.Key, err)
		}
		out = append(out, index.TermPostings{Term: m.Key, Docs: docs})
	}
	return out, nil
}

func decodeDocs(v literal.Value) ([]index.DocID, error) {
	switch v.Kind {
	case literal.Number:
		n, ok := v.Int()
		if !ok {
			return nil, fmt.Errorf("document index %s is not an integer", v.Num)
		}
		return []index.DocID{index.DocID(n)}, nil
	case literal.Array:
		docs := make([]index.DocID, 0, len(v.Items))
		for _, item := range v.Items {
			n, ok := item.Int()
			if !ok {
				return nil, fmt.Errorf("expected integer document index, got %s", item.Kind)
			}
			docs = append(docs, index.DocID(n))
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("expected document index or list, got %s", v.Kind)
	}
}

func decodeAllTitles(v literal.Value) ([]index.TitleEntry, error) {
	if v.Kind != literal.Object {
		return nil, apperrors.Malformedf("%s: expected object, got %s", index.FieldAllTitles, v.Kind)
	}
	out := make([]index.TitleEntry, 0, len(v.Members))
	for _, m := range v.Members {
		if m.Value.Kind != literal.Array {
			return nil, apperrors.Malformedf("%s[%q]: expected list of references", index.FieldAllTitles, m.Key)
		}
		entry := index.TitleEntry{Title: m.Key, Refs: make([]index.TitleRef, 0, len(m.Value.Items))}
		for _, item := range m.Value.Items {
			if item.Kind != literal.Array || len(item.Items) != 2 {
				return nil, apperrors.Malformedf("%s[%q]: expected [document, anchor] pair", index.FieldAllTitles, m.Key)
			}
			doc, ok := item.Items[0].Int()
			if !ok {
				return nil, apperrors.Malformedf("%s[%q]: document index must be an integer", index.FieldAllTitles, m.Key)
			}
			ref := index.TitleRef{Doc: index.DocID(doc)}
			switch anchor := item.Items[1]; anchor.Kind {
			case literal.String:
				ref.Anchor, ref.HasAnchor = anchor.Str, true
			case literal.Null:
			default:
				return nil, apperrors.Malformedf("%s[%q]: anchor must be a string or null", index.FieldAllTitles, m.Key)
			}
			entry.Refs = append(entry.Refs, ref)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Encode renders d as a literal object. Single-document postings are
// written as bare integers, the shape generators use.
func Encode(d *index.Data) literal.Value {
	root := literal.Value{Kind: literal.Object}
	extra := make(map[string]literal.Value, len(d.Extra))
	for _, m := range d.Extra {
		extra[m.Key] = m.Value
	}
	for _, key := range d.FieldOrder() {
		var v literal.Value
		switch key {
		case index.FieldDocNames:
			v = literal.StringsValue(d.DocNames)
		case index.FieldFileNames:
			v = literal.StringsValue(d.FileNames)
		case index.FieldTitles:
			v = literal.StringsValue(d.Titles)
		case index.FieldTerms:
			v = encodePostings(d.Terms)
		case index.FieldTitleTerms:
			v = encodePostings(d.TitleTerms)
		case index.FieldAllTitles:
			v = encodeAllTitles(d.AllTitles)
		default:
			var ok bool
			if v, ok = extra[key]; !ok {
				continue
			}
		}
		root.Members = append(root.Members, literal.Member{Key: key, Value: v})
	}
	return root
}

func encodePostings(entries []index.TermPostings) literal.Value {
	obj := literal.Value{Kind: literal.Object, Members: make([]literal.Member, 0, len(entries))}
	for _, e := range entries {
		var v literal.Value
		if len(e.Docs) == 1 {
			v = literal.IntValue(int(e.Docs[0]))
		} else {
			v = literal.Value{Kind: literal.Array, Items: make([]literal.Value, len(e.Docs))}
			for i, doc := range e.Docs {
				v.Items[i] = literal.IntValue(int(doc))
			}
		}
		obj.Members = append(obj.Members, literal.Member{Key: e.Term, Value: v})
	}
	return obj
}

func encodeAllTitles(entries []index.TitleEntry) literal.Value {
	obj := literal.Value{Kind: literal.Object, Members: make([]literal.Member, 0, len(entries))}
	for _, e := range entries {
		refs := literal.Value{Kind: literal.Array, Items: make([]literal.Value, 0, len(e.Refs))}
		for _, ref := range e.Refs {
			anchor := literal.NullValue()
			if ref.HasAnchor {
				anchor = literal.StringValue(ref.Anchor)
			}
			refs.Items = append(refs.Items, literal.ArrayValue(literal.IntValue(int(ref.Doc)), anchor))
		}
		obj.Members = append(obj.Members, literal.Member{Key: e.Title, Value: refs})
	}
	return obj
}

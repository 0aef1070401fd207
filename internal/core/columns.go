package core

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// HeaderIndex maps header names to column positions, both as written and in
// folded form (see FoldHeader). When two headers fold to the same key the
// leftmost one wins.
type HeaderIndex struct {
	exact  map[string]int
	folded map[string]int
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
func MakeHeaderIndex(headers []string) *HeaderIndex {
	idx := &HeaderIndex{
		exact:  make(map[string]int, len(headers)),
		folded: make(map[string]int, len(headers)),
	}
	for i, h := range headers {
		if _, ok := idx.exact[h]; !ok {
			idx.exact[h] = i
		}
		key := FoldHeader(h)
		if _, ok := idx.folded[key]; !ok {
			idx.folded[key] = i
		}
	}
	return idx
}

// Row is one data record of a Table.
type Row struct {
	// Line is the 1-based record number in the source; the header is line 1.
	Line   int
	Values []string

	headers []string
	index   *HeaderIndex
}

// Headers returns the table's headers in source order.
func (r Row) Headers() []string {
	return r.headers
}

// Get returns the raw cell under the exactly named header.
func (r Row) Get(header string) (string, bool) {
	if r.index == nil {
		return "", false
	}
	i, ok := r.index.exact[header]
	if !ok {
		return "", false
	}
	return r.Values[i], true
}

// Lookup returns the first non-missing value among the candidate headers.
// Every candidate is first tried as an exact header, in rank order; only then
// are the candidates tried again against folded headers, so "WAN IP" also
// finds a "wan_ip" column.
func (r Row) Lookup(candidates ...string) pgtype.Text {
	if r.index == nil {
		return pgtype.Text{}
	}
	for _, c := range candidates {
		if i, ok := r.index.exact[c]; ok {
			if v := CleanValue(r.Values[i]); v.Valid {
				return v
			}
		}
	}
	for _, c := range candidates {
		if i, ok := r.index.folded[FoldHeader(c)]; ok {
			if v := CleanValue(r.Values[i]); v.Valid {
				return v
			}
		}
	}
	return pgtype.Text{}
}

// Map returns every column of the row keyed by header.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.headers))
	for i, h := range r.headers {
		m[h] = r.Values[i]
	}
	return m
}

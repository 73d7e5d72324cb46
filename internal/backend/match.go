package backend

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/blevesearch/bleve/v2/search/searcher"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/hbollon/go-edlib"
)

// slopClause matches a quoted phrase followed by ~N, optionally prefixed by
// + or -. The query string grammar has no rule for it.
var slopClause = regexp.MustCompile(`(^|\s)([+-]?)"([^"]*)"~(\d+)`)

// parseQueryString parses q, handling "..."~N clauses as sloppy phrases on
// the cell value field.
func parseQueryString(q string) (query.Query, error) {
	matches := slopClause.FindAllStringSubmatchIndex(q, -1)
	if len(matches) == 0 {
		return query.NewQueryStringQuery(q).Parse()
	}

	type clause struct {
		occur string
		q     query.Query
	}
	var clauses []clause
	rest := make([]byte, 0, len(q))
	last := 0
	for _, m := range matches {
		// m[2]:m[3] is the leading space, kept so neighbours stay apart
		rest = append(rest, q[last:m[3]]...)
		rest = append(rest, ' ')
		last = m[1]

		slop, err := strconv.Atoi(q[m[8]:m[9]])
		if err != nil {
			return nil, fmt.Errorf("Bad phrase slop %q: %v", q[m[8]:m[9]], err)
		}
		clauses = append(clauses, clause{
			occur: q[m[4]:m[5]],
			q:     &slopPhraseQuery{phrase: q[m[6]:m[7]], slop: slop, field: CellValueField},
		})
	}
	rest = append(rest, q[last:]...)

	bq := query.NewBooleanQueryForQueryString(nil, nil, nil)
	if remaining := string(rest); strings.TrimSpace(remaining) != "" {
		parsed, err := query.NewQueryStringQuery(remaining).Parse()
		if err != nil {
			return nil, err
		}
		parsedBool, ok := parsed.(*query.BooleanQuery)
		if !ok {
			return nil, fmt.Errorf("Unexpected parse result %T", parsed)
		}
		bq = parsedBool
	}
	for _, c := range clauses {
		switch c.occur {
		case "+":
			bq.AddMust(c.q)
		case "-":
			bq.AddMustNot(c.q)
		default:
			bq.AddShould(c.q)
		}
	}
	return bq, nil
}

// slopPhraseQuery matches the phrase terms inside one cell value when they
// can be lined up with at most slop position moves. Swapping two adjacent
// terms costs 2.
type slopPhraseQuery struct {
	phrase string
	slop   int
	field  string
}

func (q *slopPhraseQuery) Searcher(ctx context.Context, i index.IndexReader, m mapping.IndexMapping, options search.SearcherOptions) (search.Searcher, error) {
	analyzer := m.AnalyzerNamed(m.AnalyzerNameForPath(q.field))
	if analyzer == nil {
		return nil, fmt.Errorf("No analyzer for field %s", q.field)
	}

	var terms []string
	for _, token := range analyzer.Analyze([]byte(q.phrase)) {
		terms = append(terms, string(token.Term))
	}
	if len(terms) == 0 {
		return searcher.NewMatchNoneSearcher(i)
	}

	options.IncludeTermVectors = true
	seen := map[string]bool{}
	var parts []search.Searcher
	closeAll := func() {
		for _, s := range parts {
			_ = s.Close()
		}
	}
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		ts, err := searcher.NewTermSearcher(ctx, i, term, q.field, 1.0, options)
		if err != nil {
			closeAll()
			return nil, err
		}
		parts = append(parts, ts)
	}

	conjunction, err := searcher.NewConjunctionSearcher(ctx, i, parts, options)
	if err != nil {
		closeAll()
		return nil, err
	}
	return searcher.NewFilteringSearcher(ctx, conjunction, func(d *search.DocumentMatch) bool {
		return withinSlop(terms, d.FieldTermLocations, q.field, q.slop)
	}), nil
}

// withinSlop reports whether some cell of field holds every term of phrase,
// each at its own position, such that the spread of (position - offset in
// phrase) is at most slop.
func withinSlop(phrase []string, locations []search.FieldTermLocation, field string, slop int) bool {
	cells := map[string]map[string][]int{}
	for _, ftl := range locations {
		if ftl.Field != field {
			continue
		}
		key := fmt.Sprint(ftl.Location.ArrayPositions)
		if cells[key] == nil {
			cells[key] = map[string][]int{}
		}
		cells[key][ftl.Term] = append(cells[key][ftl.Term], int(ftl.Location.Pos))
	}

	for _, positions := range cells {
		if placeTerms(phrase, positions, 0, map[int]bool{}, 0, 0, slop) {
			return true
		}
	}
	return false
}

func placeTerms(phrase []string, positions map[string][]int, n int, used map[int]bool, lo, hi, slop int) bool {
	if n == len(phrase) {
		return true
	}
	for _, pos := range positions[phrase[n]] {
		if used[pos] {
			continue
		}
		rel := pos - n
		nlo, nhi := rel, rel
		if n > 0 {
			nlo, nhi = min(lo, rel), max(hi, rel)
		}
		if nhi-nlo > slop {
			continue
		}
		used[pos] = true
		if placeTerms(phrase, positions, n+1, used, nlo, nhi, slop) {
			return true
		}
		delete(used, pos)
	}
	return false
}

// osaFuzzyQuery matches indexed terms within distance edits of term, where
// an adjacent transposition counts as one edit.
type osaFuzzyQuery struct {
	term     string
	distance int
	field    string
}

func (q *osaFuzzyQuery) Searcher(ctx context.Context, i index.IndexReader, m mapping.IndexMapping, options search.SearcherOptions) (search.Searcher, error) {
	if q.term == "" {
		return searcher.NewMatchNoneSearcher(i)
	}

	dict, err := i.FieldDict(q.field)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dict.Close() }()

	width := utf8.RuneCountInString(q.term)
	var terms []string
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		n := utf8.RuneCountInString(entry.Term)
		if n < width-q.distance || n > width+q.distance {
			continue
		}
		if edlib.OSADamerauLevenshteinDistance(q.term, entry.Term) <= q.distance {
			terms = append(terms, entry.Term)
		}
	}
	if len(terms) == 0 {
		return searcher.NewMatchNoneSearcher(i)
	}
	return searcher.NewMultiTermSearcher(ctx, i, terms, q.field, 1.0, options, true)
}

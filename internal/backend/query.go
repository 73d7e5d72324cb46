package backend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxEditDistance bounds fuzzy matching.
const MaxEditDistance = 2

// QueryType selects how a raw query string is matched against cell values.
type QueryType int

const (
	TermQuery QueryType = iota
	RegexQuery
	FuzzySearch
	QueryParser
)

var queryTypeNames = map[QueryType]string{
	TermQuery:   "termQuery",
	RegexQuery:  "regexQuery",
	FuzzySearch: "fuzzySearch",
	QueryParser: "queryParser",
}

func (t QueryType) String() string {
	if name, ok := queryTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("QueryType(%d)", int(t))
}

// ParseQueryType maps a selector name ("termQuery", "regexQuery",
// "fuzzySearch", "queryParser") to its QueryType.
func ParseQueryType(name string) (QueryType, error) {
	for t, n := range queryTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", UnknownQueryTypeError, name)
}

func (t QueryType) MarshalText() ([]byte, error) {
	if _, ok := queryTypeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", UnknownQueryTypeError, int(t))
	}
	return []byte(t.String()), nil
}

func (t *QueryType) UnmarshalText(text []byte) error {
	parsed, err := ParseQueryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Compile translates q into an executable query over the cell value field.
//
// TermQuery matches q exactly against the indexed terms. RegexQuery treats q
// as a case-insensitive prefix pattern. FuzzySearch allows up to
// MaxEditDistance edits, a transposition counting as one. QueryParser parses
// q as a boolean/phrase query string; a phrase followed by ~N matches with
// up to N position moves.
func Compile(queryType QueryType, q string) (query.Query, error) {
	switch queryType {
	case TermQuery:
		tq := bleve.NewTermQuery(q)
		tq.SetField(CellValueField)
		return tq, nil

	case RegexQuery:
		pattern := "(?i)" + q + ".*"
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: %v", InvalidQueryError, err)
		}
		rq := bleve.NewRegexpQuery(pattern)
		rq.SetField(CellValueField)
		return rq, nil

	case FuzzySearch:
		return &osaFuzzyQuery{term: q, distance: MaxEditDistance, field: CellValueField}, nil

	case QueryParser:
		parsed, err := parseQueryString(q)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", InvalidQueryError, err)
		}
		return parsed, nil
	}

	return nil, fmt.Errorf("%w: %d", UnknownQueryTypeError, int(queryType))
}

type queryKey struct {
	queryType QueryType
	q         string
}

// QueryCompiler memoizes Compile. Compiled queries are never mutated, so
// they can be shared between concurrent searches.
type QueryCompiler struct {
	cache *lru.Cache[queryKey, query.Query]
}

// NewQueryCompiler returns a compiler caching up to size queries. A size
// below 1 disables caching.
func NewQueryCompiler(size int) (*QueryCompiler, error) {
	if size < 1 {
		return &QueryCompiler{}, nil
	}
	cache, err := lru.New[queryKey, query.Query](size)
	if err != nil {
		return nil, err
	}
	return &QueryCompiler{cache: cache}, nil
}

func (c *QueryCompiler) Compile(queryType QueryType, q string) (query.Query, error) {
	key := queryKey{queryType: queryType, q: q}
	if c.cache != nil {
		if compiled, ok := c.cache.Get(key); ok {
			return compiled, nil
		}
	}

	compiled, err := Compile(queryType, q)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(key, compiled)
	}
	return compiled, nil
}

func (c *QueryCompiler) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

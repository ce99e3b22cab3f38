// Package locator builds request URLs for the transliteration provider.
//
// A Builder maps (query, retained context) pairs to fully-encoded request
// URLs. Identical input always produces byte-identical output, including a
// constant callback name, so any HTTP cache downstream sees repeatable
// requests. Built locators are memoized in a small FIFO cache; the cache is
// a pure performance aid and never affects the produced URL.
package locator

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// Provider protocol defaults.
const (
	// DefaultEndpoint is the Google Input Tools transliteration endpoint.
	DefaultEndpoint = "https://inputtools.google.com/request"

	// DefaultInputTool selects Cantonese (traditional script) jyutping.
	DefaultInputTool = "yue-hant-t-i0-und"

	// DefaultCandidateCap is the server-side candidate limit. It is larger
	// than one UI page so paging works without a second request.
	DefaultCandidateCap = 13

	// DefaultCallbackName is the constant JSONP callback identifier. It
	// must never vary between requests.
	DefaultCallbackName = "_callbacks____cantotype"

	// DefaultCacheSize bounds the memoization cache.
	DefaultCacheSize = 100
)

// ErrEmptyQuery is returned when Build is called with a query that is empty
// after trimming. Callers are expected to check this precondition first.
var ErrEmptyQuery = errors.New("locator: empty query")

// Options configures a Builder. Zero fields fall back to the defaults above.
type Options struct {
	Endpoint     string
	InputTool    string
	CandidateCap int
	CallbackName string
	CacheSize    int
}

// Builder produces provider request URLs. It is not safe for concurrent
// use; the input controller serializes all calls.
type Builder struct {
	endpoint     string
	inputTool    string
	candidateCap int
	callbackName string
	maxEntries   int

	cache map[string]string
	order []string // insertion order for FIFO eviction
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts Options) *Builder {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.InputTool == "" {
		opts.InputTool = DefaultInputTool
	}
	if opts.CandidateCap <= 0 {
		opts.CandidateCap = DefaultCandidateCap
	}
	if opts.CallbackName == "" {
		opts.CallbackName = DefaultCallbackName
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	return &Builder{
		endpoint:     opts.Endpoint,
		inputTool:    opts.InputTool,
		candidateCap: opts.CandidateCap,
		callbackName: opts.CallbackName,
		maxEntries:   opts.CacheSize,
		cache:        make(map[string]string, opts.CacheSize),
	}
}

// CanonicalKey returns the text parameter sent to the provider: the
// retained context and query joined as "|<retained>,<query>" when context
// is present, or the bare query otherwise.
func CanonicalKey(query, retained string) string {
	if retained == "" {
		return query
	}
	return "|" + retained + "," + query
}

// Build returns the request URL for the given query and optional retained
// context. Returns ErrEmptyQuery when the query is empty after trimming.
func (b *Builder) Build(query, retained string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	key := CanonicalKey(query, retained)
	if loc, ok := b.cache[key]; ok {
		return loc, nil
	}

	params := url.Values{}
	params.Set("text", key)
	params.Set("itc", b.inputTool)
	params.Set("num", strconv.Itoa(b.candidateCap))
	params.Set("cp", "0")
	params.Set("cs", "1")
	params.Set("ie", "utf-8")
	params.Set("oe", "utf-8")
	params.Set("app", "jsapi")
	params.Set("cb", b.callbackName)

	loc := b.endpoint + "?" + params.Encode()
	b.insert(key, loc)
	return loc, nil
}

// insert adds a cache entry, evicting the oldest inserted key when full.
func (b *Builder) insert(key, loc string) {
	if len(b.cache) >= b.maxEntries {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.cache, oldest)
	}
	b.cache[key] = loc
	b.order = append(b.order, key)
}

// Cached reports whether a locator for (query, retained) is memoized.
func (b *Builder) Cached(query, retained string) bool {
	_, ok := b.cache[CanonicalKey(query, retained)]
	return ok
}

// CacheLen returns the number of memoized locators.
func (b *Builder) CacheLen() int {
	return len(b.cache)
}

package ime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cantotype/internal/convert"
	"cantotype/internal/decode"
	"cantotype/internal/locator"
	"cantotype/internal/page"
	"cantotype/internal/segment"
)

// State describes where the controller sits between edits and responses.
type State int

const (
	// StateIdle means no query is in flight and no edit is pending.
	StateIdle State = iota
	// StatePending means a debounced edit is awaiting dispatch.
	StatePending
	// StateAwaiting means a query was dispatched and its response is pending.
	StateAwaiting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateAwaiting:
		return "awaiting"
	default:
		return "unknown"
	}
}

// Defaults for controller options.
const (
	DefaultPageSize = 6

	// DefaultDebounceShort applies until the first selection of a session
	// (and again after the buffer empties), giving snappy first-keystroke
	// feedback.
	DefaultDebounceShort = 100 * time.Millisecond

	// DefaultDebounceLong applies once a selection has occurred, when
	// edits tend to arrive in bursts.
	DefaultDebounceLong = 200 * time.Millisecond
)

// Fetcher retrieves the response body behind a locator. *fetch.Client
// satisfies it.
type Fetcher interface {
	Get(ctx context.Context, locator string) (string, error)
}

// Candidate pairs a suggestion with its 1-based position on the current
// page. Candidates carry no identity beyond page and position; every page
// change produces a fresh set.
type Candidate struct {
	Position int
	Text     string
}

// Snapshot is the complete render state handed to a front-end.
type Snapshot struct {
	// Buffer is the live text, digits never included.
	Buffer string
	// Committed is Buffer after optional simplified-script conversion.
	// Front-ends expose this one; internal state always holds Buffer.
	Committed string
	State     State
	Loading   bool
	ErrMsg    string
	// Candidates is the current page, at most the page size.
	Candidates []Candidate
	PageIndex  int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Selection describes one committed candidate, delivered to the OnCommit
// hook.
type Selection struct {
	Query     string
	Retained  string
	Candidate string
	PageIndex int
	Position  int
}

// Options configures a Controller.
type Options struct {
	Builder       *locator.Builder
	Fetcher       Fetcher
	PageSize      int
	DebounceShort time.Duration
	DebounceLong  time.Duration
	// Simplified converts committed text to simplified script at the
	// presentation boundary.
	Simplified bool
	// OnUpdate receives a Snapshot after every state change. Called
	// without the controller lock held.
	OnUpdate func(Snapshot)
	// OnCommit receives every candidate selection, e.g. for history.
	OnCommit func(Selection)
	Logger   *slog.Logger
}

// Controller owns the live buffer and drives queries, paging, and
// selection. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	builder       *locator.Builder
	fetcher       Fetcher
	pageSize      int
	debounceShort time.Duration
	debounceLong  time.Duration
	simplified    bool
	onUpdate      func(Snapshot)
	onCommit      func(Selection)
	log           *slog.Logger

	buffer      string
	candidates  []string
	pageIndex   int
	state       State
	loading     bool
	lastErr     error
	hasSelected bool

	// lastQuery/lastRetained are the segments of the most recently
	// dispatched (debounced) buffer; dispatch is skipped when neither
	// changed.
	lastQuery    string
	lastRetained string

	timer      *time.Timer
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	pendingCommit *Selection
}

// NewController creates a Controller. Fetcher is required; a nil Builder
// falls back to provider defaults.
func NewController(opts Options) *Controller {
	if opts.Fetcher == nil {
		panic("ime: Options.Fetcher is required")
	}
	if opts.Builder == nil {
		opts.Builder = locator.NewBuilder(locator.Options{})
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.DebounceShort <= 0 {
		opts.DebounceShort = DefaultDebounceShort
	}
	if opts.DebounceLong <= 0 {
		opts.DebounceLong = DefaultDebounceLong
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		builder:       opts.Builder,
		fetcher:       opts.Fetcher,
		pageSize:      opts.PageSize,
		debounceShort: opts.DebounceShort,
		debounceLong:  opts.DebounceLong,
		simplified:    opts.Simplified,
		onUpdate:      opts.OnUpdate,
		onCommit:      opts.OnCommit,
		log:           opts.Logger,
	}
}

// OnBufferChange processes a full-buffer change event from the front-end.
// A trailing control digit triggers selection or paging; any other text
// becomes the new buffer (stray digits dropped) and arms the query
// debounce.
func (c *Controller) OnBufferChange(text string) {
	c.mu.Lock()

	if text == "" {
		// Re-arm the short debounce for the next keystroke.
		c.hasSelected = false
	}

	if base, num, ok := controlSuffix(text); ok {
		c.handleControlLocked(base, num)
	} else {
		r := segment.Split(text)
		c.buffer = r.Retained + r.Query
		c.armDebounceLocked()
	}

	c.notifyAndUnlock()
}

// controlSuffix reports whether text is a control sequence: a base string
// followed by one of the digits 0-6 or 9. Multi-byte runes never end in an
// ASCII digit byte, so byte inspection is safe.
func controlSuffix(text string) (base string, num int, ok bool) {
	if text == "" {
		return "", 0, false
	}
	last := text[len(text)-1]
	switch last {
	case '0', '1', '2', '3', '4', '5', '6', '9':
		return text[:len(text)-1], int(last - '0'), true
	}
	return "", 0, false
}

func (c *Controller) handleControlLocked(base string, num int) {
	pg := page.Compute(len(c.candidates), c.pageSize, c.pageIndex)

	switch {
	case num >= 1 && num <= 6:
		visible := pg.Slice(c.candidates)
		if num > len(visible) {
			return // no such position; the digit is simply dropped
		}
		cand := visible[num-1]

		// Retained context comes from the buffer as it stood before this
		// keystroke, not from the event's base text.
		prior := segment.Split(c.buffer)
		c.pendingCommit = &Selection{
			Query:     prior.Query,
			Retained:  prior.Retained,
			Candidate: cand,
			PageIndex: pg.Index,
			Position:  num,
		}

		c.buffer = prior.Retained + cand
		c.hasSelected = true

		// Optimistic clear: the next query repopulates the list. Orphan
		// any in-flight response so it cannot undo the clear.
		c.candidates = nil
		c.generation++
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.loading = false
		c.armDebounceLocked()

	case num == 0:
		if !pg.HasNext {
			return
		}
		c.pageIndex = pg.Index + 1
		c.setBufferFromBaseLocked(base)

	case num == 9:
		if !pg.HasPrev {
			return
		}
		c.pageIndex = pg.Index - 1
		c.setBufferFromBaseLocked(base)

	default:
		// 7 and 8 are not control digits; the segmenter would have
		// dropped them, so this is unreachable. Treat as no-op anyway.
	}
}

// setBufferFromBaseLocked adopts the control event's base text as the
// buffer, re-segmented so the no-digits invariant holds even for pasted
// text.
func (c *Controller) setBufferFromBaseLocked(base string) {
	r := segment.Split(base)
	c.buffer = r.Retained + r.Query
}

// armDebounceLocked coalesces edits: only the last edit inside the window
// dispatches a query.
func (c *Controller) armDebounceLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	delay := c.debounceShort
	if c.hasSelected {
		delay = c.debounceLong
	}
	c.state = StatePending
	c.timer = time.AfterFunc(delay, c.dispatch)
}

// dispatch runs when the debounce window closes. It re-reads the buffer,
// and when the query segment is live, builds a locator and starts a fetch.
func (c *Controller) dispatch() {
	c.mu.Lock()

	// A timer that fired while Close held the lock lands here afterwards;
	// it must not start a fresh fetch.
	if c.closed {
		c.mu.Unlock()
		return
	}

	r := segment.Split(c.buffer)
	query := r.Query

	if strings.TrimSpace(query) == "" {
		// Nothing to ask; drop interest in any pending response and make
		// sure no stale candidates linger.
		c.generation++
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		if c.lastQuery != "" {
			c.pageIndex = 0
		}
		c.lastQuery, c.lastRetained = "", r.Retained
		c.candidates = nil
		c.loading = false
		c.lastErr = nil
		c.state = StateIdle
		c.notifyAndUnlock()
		return
	}

	if query == c.lastQuery && r.Retained == c.lastRetained {
		c.state = StateIdle
		c.notifyAndUnlock()
		return
	}

	if query != c.lastQuery {
		// A fresh query invalidates prior paging.
		c.pageIndex = 0
	}
	c.lastQuery, c.lastRetained = query, r.Retained

	loc, err := c.builder.Build(query, r.Retained)
	if err != nil {
		// Guarded above; kept as a hard stop for programmer error.
		c.lastErr = err
		c.state = StateIdle
		c.notifyAndUnlock()
		return
	}

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.generation++
	gen := c.generation

	c.loading = true
	c.state = StateAwaiting
	c.log.Debug("dispatching query", "text", locator.CanonicalKey(query, r.Retained), "generation", gen)

	fetcher := c.fetcher
	go func() {
		body, err := fetcher.Get(ctx, loc)
		c.applyResult(gen, body, err)
	}()

	c.notifyAndUnlock()
}

// applyResult applies a fetch outcome. Results from superseded locators
// are discarded so visible state only ever reflects the most recent
// dispatch.
func (c *Controller) applyResult(gen uint64, body string, err error) {
	c.mu.Lock()

	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	c.loading = false
	c.state = StateIdle

	if err != nil {
		c.lastErr = err
		c.log.Warn("fetch failed", "error", err)
		c.notifyAndUnlock()
		return
	}

	cands, err := decode.Candidates(body)
	if err != nil {
		c.lastErr = err
		c.log.Warn("decode failed", "error", err)
		c.notifyAndUnlock()
		return
	}

	c.lastErr = nil
	c.candidates = cands
	c.notifyAndUnlock()
}

// Snapshot returns the current render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	pg := page.Compute(len(c.candidates), c.pageSize, c.pageIndex)

	visible := pg.Slice(c.candidates)
	cands := make([]Candidate, len(visible))
	for i, text := range visible {
		cands[i] = Candidate{Position: i + 1, Text: text}
	}

	committed := c.buffer
	if c.simplified {
		committed = convert.Simplify(c.buffer)
	}

	var errMsg string
	if c.lastErr != nil {
		errMsg = c.lastErr.Error()
	}

	return Snapshot{
		Buffer:     c.buffer,
		Committed:  committed,
		State:      c.state,
		Loading:    c.loading,
		ErrMsg:     errMsg,
		Candidates: cands,
		PageIndex:  pg.Index,
		TotalPages: pg.TotalPages,
		HasNext:    pg.HasNext,
		HasPrev:    pg.HasPrev,
	}
}

// notifyAndUnlock snapshots under the lock, releases it, and then invokes
// the hooks so they may call back into the controller.
func (c *Controller) notifyAndUnlock() {
	snap := c.snapshotLocked()
	update := c.onUpdate
	commit := c.onCommit
	sel := c.pendingCommit
	c.pendingCommit = nil
	c.mu.Unlock()

	if sel != nil && commit != nil {
		commit(*sel)
	}
	if update != nil {
		update(snap)
	}
}

// SetSimplified toggles simplified-script conversion of committed text.
// Used by config hot reload.
func (c *Controller) SetSimplified(on bool) {
	c.mu.Lock()
	c.simplified = on
	c.notifyAndUnlock()
}

// Close stops the debounce timer, cancels any in-flight request, and
// prevents any already-fired timer from dispatching.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}

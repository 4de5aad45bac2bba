package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/overlay"
)

// State is the lifecycle phase of one page session.
type State int

const (
	// StateIdle means no manifest page is active for this tab.
	StateIdle State = iota
	// StateInitializing means a retry loop is waiting for the page to
	// expose the rendered manifest.
	StateInitializing
	// StateActive means controls are rendered and signals are being
	// consumed.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Options tune the session state machine. Zero values fall back to the
// defaults below.
type Options struct {
	ManifestMarker   string
	ManifestPatterns []string
	Debounce         time.Duration
	RetryAttempts    int
	RetryInterval    time.Duration
	URLPollInterval  time.Duration
}

const (
	defaultManifestMarker  = ".repos"
	defaultDebounce        = 100 * time.Millisecond
	defaultRetryAttempts   = 10
	defaultRetryInterval   = 250 * time.Millisecond
	defaultURLPollInterval = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ManifestMarker == "" {
		o.ManifestMarker = defaultManifestMarker
	}
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = defaultRetryAttempts
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.URLPollInterval <= 0 {
		o.URLPollInterval = defaultURLPollInterval
	}
	return o
}

// cycle identifies one URL-processing pass. Deferred callbacks hold the
// cycle they were scheduled under and compare pointers before acting, so
// work belonging to an abandoned cycle can never touch the overlay.
type cycle struct {
	url   string
	timer *time.Timer
}

// Session is the per-tab lifecycle state machine: it decides whether the
// current URL names a manifest view, drives the bounded init-retry loop,
// and debounces mutation/viewport signals into parse or reposition passes.
// All external inputs are serialized through one mutex; timer callbacks
// re-acquire it and re-check the active cycle.
type Session struct {
	opts    Options
	doc     overlay.Document
	overlay *overlay.Synchronizer
	onParse func(url string, records map[string]manifest.Record)

	mu             sync.Mutex
	state          State
	lastURL        string
	records        map[string]manifest.Record
	current        *cycle
	debounce       *time.Timer
	pendingReparse bool
}

// NewSession builds a session over the given document and surface. onParse,
// when non-nil, observes every successful parse (used for history
// persistence); it must not call back into the session.
func NewSession(opts Options, doc overlay.Document, surface overlay.Surface, onParse func(url string, records map[string]manifest.Record)) *Session {
	return &Session{
		opts:    opts.withDefaults(),
		doc:     doc,
		overlay: overlay.NewSynchronizer(surface),
		onParse: onParse,
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastURL returns the most recently processed URL.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

// RecordCount returns the number of repository records held by the active
// cycle.
func (s *Session) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ProcessURL reacts to a "URL may have changed" signal from any source:
// navigation notification, page snapshot, or fallback poll. A URL equal to
// the last processed one is a no-op, which makes redundant signals safe.
// Any real change tears the previous cycle down before the next one starts.
func (s *Session) ProcessURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if url == "" || url == s.lastURL {
		return
	}

	s.teardownLocked()
	s.lastURL = url

	if !IsManifestURL(url, s.opts.ManifestMarker, s.opts.ManifestPatterns) {
		return
	}

	c := &cycle{url: url}
	s.current = c
	s.state = StateInitializing
	slog.Debug("manifest page detected", "url", url)
	s.scheduleInitLocked(c, 0)
}

// NotifyMutation reports that the host page re-rendered manifest lines.
// Bursts collapse into one trailing re-parse after the debounce window.
func (s *Session) NotifyMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || s.current == nil {
		return
	}
	s.scheduleDebouncedLocked(s.current, true)
}

// NotifyViewport reports a scroll or resize. Positions are re-derived
// without re-parsing unless no records are held, in which case the pass
// escalates to a full re-parse.
func (s *Session) NotifyViewport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || s.current == nil {
		return
	}
	s.scheduleDebouncedLocked(s.current, len(s.records) == 0)
}

// RunURLPoll feeds the session from a URL source on a fixed interval until
// ctx is done. It is the fallback signal path for hosts that swallow
// navigation events; ProcessURL's idempotence makes the redundancy safe.
func (s *Session) RunURLPoll(ctx context.Context, source func() string) {
	ticker := time.NewTicker(s.opts.URLPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ProcessURL(source())
		}
	}
}

// teardownLocked synchronously cancels the pending timers of the current
// cycle and removes the overlay. Clearing strictly precedes whatever the
// caller starts next.
func (s *Session) teardownLocked() {
	if s.current != nil && s.current.timer != nil {
		s.current.timer.Stop()
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.pendingReparse = false
	s.current = nil
	s.records = nil
	s.overlay.Clear()
	s.state = StateIdle
}

func (s *Session) scheduleInitLocked(c *cycle, attempt int) {
	delay := time.Duration(0)
	if attempt > 0 {
		delay = s.opts.RetryInterval
	}
	c.timer = time.AfterFunc(delay, func() {
		s.initAttempt(c, attempt)
	})
}

func (s *Session) initAttempt(c *cycle, attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != c || s.state != StateInitializing {
		return
	}

	if err := s.parseAndRenderLocked(c); err == nil {
		s.state = StateActive
		slog.Info("overlay initialized", "url", c.url, "records", len(s.records), "attempt", attempt+1)
		return
	}
	if attempt+1 < s.opts.RetryAttempts {
		s.scheduleInitLocked(c, attempt+1)
		return
	}
	slog.Warn("manifest page elements not found, giving up", "url", c.url, "attempts", s.opts.RetryAttempts)

	// Retry budget exhausted: quiesce without clearing lastURL so redundant
	// signals for the same URL stay no-ops.
	s.current = nil
	s.records = nil
	s.overlay.Clear()
	s.state = StateIdle
}

func (s *Session) scheduleDebouncedLocked(c *cycle, reparse bool) {
	if reparse {
		s.pendingReparse = true
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.opts.Debounce, func() {
		s.fireDebounced(c)
	})
}

func (s *Session) fireDebounced(c *cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != c || s.state != StateActive {
		return
	}
	reparse := s.pendingReparse
	s.pendingReparse = false

	if !reparse {
		s.overlay.Reposition(s.doc)
		return
	}

	if err := s.parseAndRenderLocked(c); err != nil {
		// The page structure went away underneath us. Drop to idle and let
		// the next URL signal start over; resetting lastURL allows the
		// fallback poll to recover the same URL.
		slog.Warn("manifest elements disappeared, overlay removed", "url", c.url, "error", err)
		s.teardownLocked()
		s.lastURL = ""
	}
}

func (s *Session) parseAndRenderLocked(c *cycle) error {
	records := manifest.Parse(s.doc.Lines())
	if err := s.overlay.Render(records, s.doc); err != nil {
		return err
	}
	s.records = records
	if s.onParse != nil && len(records) > 0 {
		s.onParse(c.url, records)
	}
	return nil
}

package session

import (
	"context"
	"sync"

	"github.com/rvbeek/repolens/internal/manifest"
	"github.com/rvbeek/repolens/internal/overlay"
)

// Tab bundles one browser tab's session with its document and surface.
type Tab struct {
	Session *Session
	Doc     *overlay.SnapshotDocument
	Surface *overlay.RecordingSurface

	mu      sync.Mutex
	lastURL string
}

func (t *Tab) setLastURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastURL = url
}

func (t *Tab) lastReportedURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastURL
}

// Manager owns one session per tab, creating them lazily. It implements
// navigation.Notifier, so the NavigationWatcher can deliver url-changed
// notifications directly.
type Manager struct {
	ctx     context.Context
	opts    Options
	onParse func(url string, records map[string]manifest.Record)

	mu   sync.Mutex
	tabs map[int]*Tab
}

// NewManager builds a manager whose per-tab URL polls stop when ctx is
// canceled.
func NewManager(ctx context.Context, opts Options, onParse func(url string, records map[string]manifest.Record)) *Manager {
	return &Manager{
		ctx:     ctx,
		opts:    opts,
		onParse: onParse,
		tabs:    make(map[int]*Tab),
	}
}

// Tab returns the state for tabID, creating it on first use.
func (m *Manager) Tab(tabID int) *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.tabs[tabID]
	if ok {
		return tab
	}

	doc := overlay.NewSnapshotDocument()
	surface := overlay.NewRecordingSurface()
	tab = &Tab{
		Session: NewSession(m.opts, doc, surface, m.onParse),
		Doc:     doc,
		Surface: surface,
	}
	m.tabs[tabID] = tab
	go tab.Session.RunURLPoll(m.ctx, tab.lastReportedURL)
	return tab
}

// NotifyURLChanged satisfies navigation.Notifier.
func (m *Manager) NotifyURLChanged(tabID int, url string) error {
	tab := m.Tab(tabID)
	tab.setLastURL(url)
	tab.Session.ProcessURL(url)
	return nil
}

// ApplySnapshot installs the latest rendered-page observation for a tab and
// feeds the session the implied signals: a possible local URL change and a
// content mutation.
func (m *Manager) ApplySnapshot(tabID int, pageURL string, snap overlay.Snapshot) {
	tab := m.Tab(tabID)
	tab.Doc.Update(snap)
	if pageURL != "" {
		tab.setLastURL(pageURL)
		tab.Session.ProcessURL(pageURL)
	}
	tab.Session.NotifyMutation()
}

// NotifyViewport forwards a scroll/resize signal for a tab.
func (m *Manager) NotifyViewport(tabID int) {
	m.Tab(tabID).Session.NotifyViewport()
}

// Controls returns the current control placements for a tab.
func (m *Manager) Controls(tabID int) []overlay.Control {
	return m.Tab(tabID).Surface.Controls()
}

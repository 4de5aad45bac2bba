package navigation

import (
	"log/slog"
	"net/url"
	"strings"
)

// TabEvent is one host-runtime navigation/tab-update event.
type TabEvent struct {
	TabID int
	URL   string
}

// Notifier delivers a "URL may have changed" notification to a tab's page
// session. Delivery failure is expected (the page side may not be listening
// yet) and is never fatal.
type Notifier interface {
	NotifyURLChanged(tabID int, url string) error
}

// Watcher filters navigation events down to the monitored site and forwards
// them. It holds no state across events.
type Watcher struct {
	domain   string
	notifier Notifier
}

func NewWatcher(domain string, notifier Notifier) *Watcher {
	return &Watcher{domain: strings.ToLower(strings.TrimSpace(domain)), notifier: notifier}
}

// HandleTabEvent forwards ev when its URL belongs to the monitored domain.
// The forwarded notification means "re-evaluate the current location", it
// carries no authority over page content.
func (w *Watcher) HandleTabEvent(ev TabEvent) {
	if !w.matchesDomain(ev.URL) {
		return
	}
	if err := w.notifier.NotifyURLChanged(ev.TabID, ev.URL); err != nil {
		slog.Debug("url change notification dropped", "tab", ev.TabID, "error", err)
	}
}

func (w *Watcher) matchesDomain(raw string) bool {
	if w.domain == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == w.domain || strings.HasSuffix(host, "."+w.domain)
}

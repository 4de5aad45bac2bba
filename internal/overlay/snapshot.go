package overlay

import (
	"sync"

	"github.com/rvbeek/repolens/internal/manifest"
)

// Snapshot is one observation of the host page's rendered manifest as
// reported by the browser shim: the line set, per-line vertical offsets and
// the horizontal anchor. Line keys are only comparable within one snapshot.
type Snapshot struct {
	ContainerPresent bool
	AnchorPresent    bool
	AnchorX          int
	Lines            []manifest.Line
	LineTops         map[string]int
}

// SnapshotDocument is the production Document implementation: it serves the
// most recently applied Snapshot. Safe for concurrent use.
type SnapshotDocument struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewSnapshotDocument() *SnapshotDocument {
	return &SnapshotDocument{}
}

// Update replaces the current snapshot wholesale.
func (d *SnapshotDocument) Update(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = snap
}

// Reset drops the current snapshot, returning the document to not-ready.
func (d *SnapshotDocument) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = Snapshot{}
}

func (d *SnapshotDocument) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap.ContainerPresent
}

func (d *SnapshotDocument) Lines() []manifest.Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]manifest.Line, len(d.snap.Lines))
	copy(out, d.snap.Lines)
	return out
}

func (d *SnapshotDocument) LineTop(key string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	top, ok := d.snap.LineTops[key]
	return top, ok
}

func (d *SnapshotDocument) AnchorX() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.snap.AnchorPresent {
		return 0, false
	}
	return d.snap.AnchorX, true
}

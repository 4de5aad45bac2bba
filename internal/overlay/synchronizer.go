package overlay

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/rvbeek/repolens/internal/manifest"
)

// Horizontal gap between the manifest text area and a control.
const controlMarginX = 8

// Document is the narrow read-only view of the host page's rendered
// manifest. Implementations are untrusted external data providers; every
// lookup may fail and callers degrade per unit of work.
type Document interface {
	// Ready reports whether the rendered file container is present.
	Ready() bool
	// Lines returns the currently rendered lines in order.
	Lines() []manifest.Line
	// LineTop returns the vertical offset of the line with the given key.
	LineTop(key string) (int, bool)
	// AnchorX returns the horizontal reference point controls align to.
	AnchorX() (int, bool)
}

// Point is a screen position in page coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Control is one placed shortcut. Activating it opens URL in a new
// unprivileged browsing context; that final hop belongs to the presentation
// layer, the synchronizer only decides what goes where.
type Control struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	LineKey string `json:"line_key"`
	Pos     Point  `json:"pos"`
}

// Surface receives the controls the synchronizer decides on. Implementations
// must tolerate RemoveAll without prior placements.
type Surface interface {
	PlaceControl(c Control)
	MoveControl(name string, pos Point)
	RemoveAll()
}

// Synchronizer owns the set of visible controls for one manifest view and
// keeps them aligned with the page as it mutates. Not safe for concurrent
// use; the owning session serializes access.
type Synchronizer struct {
	surface  Surface
	controls []Control
}

func NewSynchronizer(surface Surface) *Synchronizer {
	return &Synchronizer{surface: surface}
}

// Render replaces all controls with one per displayable record. Records
// whose source line is no longer rendered are skipped. A missing container
// or anchor aborts this render attempt with an error so the caller's retry
// policy can decide; per-record failures never do.
func (s *Synchronizer) Render(records map[string]manifest.Record, doc Document) error {
	s.Clear()

	if doc == nil || !doc.Ready() {
		return fmt.Errorf("manifest container not found")
	}
	anchorX, ok := doc.AnchorX()
	if !ok {
		return fmt.Errorf("manifest text anchor not found")
	}

	names := make([]string, 0, len(records))
	for name, rec := range records {
		if rec.Displayable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		rec := records[name]
		top, ok := doc.LineTop(rec.LineKey)
		if !ok {
			slog.Debug("repository line not rendered, skipping control", "name", name, "key", rec.LineKey)
			continue
		}
		c := Control{
			Name:    name,
			URL:     rec.URL,
			LineKey: rec.LineKey,
			Pos:     Point{X: anchorX + controlMarginX, Y: top},
		}
		s.surface.PlaceControl(c)
		s.controls = append(s.controls, c)
	}
	return nil
}

// Reposition re-derives positions of the already-created controls without
// re-parsing. Controls whose line scrolled out of the rendered set keep
// their last position and are picked up again on the next pass.
func (s *Synchronizer) Reposition(doc Document) {
	if doc == nil || !doc.Ready() {
		return
	}
	anchorX, ok := doc.AnchorX()
	if !ok {
		return
	}
	for i := range s.controls {
		top, ok := doc.LineTop(s.controls[i].LineKey)
		if !ok {
			continue
		}
		s.controls[i].Pos = Point{X: anchorX + controlMarginX, Y: top}
		s.surface.MoveControl(s.controls[i].Name, s.controls[i].Pos)
	}
}

// Clear removes every control. Safe to call repeatedly.
func (s *Synchronizer) Clear() {
	s.surface.RemoveAll()
	s.controls = s.controls[:0]
}

// ControlCount returns the number of currently placed controls.
func (s *Synchronizer) ControlCount() int {
	return len(s.controls)
}

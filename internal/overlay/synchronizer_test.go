package overlay

import (
	"testing"

	"github.com/rvbeek/repolens/internal/manifest"
)

func snapshotWith(records ...string) Snapshot {
	snap := Snapshot{
		ContainerPresent: true,
		AnchorPresent:    true,
		AnchorX:          100,
		LineTops:         map[string]int{},
	}
	for i, key := range records {
		snap.LineTops[key] = 20 * (i + 1)
	}
	return snap
}

func TestRenderPlacesControlsForDisplayableRecords(t *testing.T) {
	doc := NewSnapshotDocument()
	doc.Update(snapshotWith("L0", "L4"))
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)

	records := map[string]manifest.Record{
		"pkg/foo":    {Name: "pkg/foo", Type: "git", URL: "https://github.com/org/foo", LineKey: "L0"},
		"pkg/bar":    {Name: "pkg/bar", Type: "git", URL: "https://github.com/org/bar", LineKey: "L4"},
		"pkg/legacy": {Name: "pkg/legacy", Type: "hg", URL: "https://example.com/legacy", LineKey: "L8"},
	}

	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("render: %v", err)
	}

	controls := surface.Controls()
	if len(controls) != 2 {
		t.Fatalf("expected 2 controls, got %d: %+v", len(controls), controls)
	}
	// Deterministic name order.
	if controls[0].Name != "pkg/bar" || controls[1].Name != "pkg/foo" {
		t.Fatalf("unexpected control order: %+v", controls)
	}
	if controls[1].Pos.Y != 20 || controls[1].Pos.X != 108 {
		t.Fatalf("unexpected pkg/foo position: %+v", controls[1].Pos)
	}
}

func TestRenderSkipsRecordsWithMissingLines(t *testing.T) {
	doc := NewSnapshotDocument()
	doc.Update(snapshotWith("L0"))
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)

	records := map[string]manifest.Record{
		"pkg/visible": {Name: "pkg/visible", Type: "git", URL: "https://h/o/visible", LineKey: "L0"},
		"pkg/gone":    {Name: "pkg/gone", Type: "git", URL: "https://h/o/gone", LineKey: "L99"},
	}

	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	controls := surface.Controls()
	if len(controls) != 1 || controls[0].Name != "pkg/visible" {
		t.Fatalf("expected only pkg/visible, got: %+v", controls)
	}
}

func TestRenderFailsWithoutContainerOrAnchor(t *testing.T) {
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)
	records := map[string]manifest.Record{
		"pkg/foo": {Name: "pkg/foo", Type: "git", URL: "https://h/o/foo", LineKey: "L0"},
	}

	doc := NewSnapshotDocument()
	if err := sync.Render(records, doc); err == nil {
		t.Fatalf("expected error for missing container")
	}

	doc.Update(Snapshot{ContainerPresent: true, LineTops: map[string]int{"L0": 10}})
	if err := sync.Render(records, doc); err == nil {
		t.Fatalf("expected error for missing anchor")
	}
	if len(surface.Controls()) != 0 {
		t.Fatalf("failed render must not leave controls: %+v", surface.Controls())
	}
}

func TestRenderClearsPreviousControlsFirst(t *testing.T) {
	doc := NewSnapshotDocument()
	doc.Update(snapshotWith("L0"))
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)
	records := map[string]manifest.Record{
		"pkg/foo": {Name: "pkg/foo", Type: "git", URL: "https://h/o/foo", LineKey: "L0"},
	}

	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("first render: %v", err)
	}
	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if got := len(surface.Controls()); got != 1 {
		t.Fatalf("re-render duplicated controls: %d", got)
	}
	if surface.RemoveAllCalls() < 2 {
		t.Fatalf("each render must clear first, removes=%d", surface.RemoveAllCalls())
	}
}

func TestRepositionMovesWithoutReparsing(t *testing.T) {
	doc := NewSnapshotDocument()
	doc.Update(snapshotWith("L0"))
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)
	records := map[string]manifest.Record{
		"pkg/foo": {Name: "pkg/foo", Type: "git", URL: "https://h/o/foo", LineKey: "L0"},
	}
	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("render: %v", err)
	}

	// Page scrolled: same lines, new offsets.
	doc.Update(Snapshot{
		ContainerPresent: true,
		AnchorPresent:    true,
		AnchorX:          150,
		LineTops:         map[string]int{"L0": 400},
	})
	sync.Reposition(doc)

	controls := surface.Controls()
	if len(controls) != 1 {
		t.Fatalf("reposition changed control count: %+v", controls)
	}
	if controls[0].Pos.X != 158 || controls[0].Pos.Y != 400 {
		t.Fatalf("unexpected repositioned point: %+v", controls[0].Pos)
	}
}

func TestRepositionToleratesMissingElements(t *testing.T) {
	doc := NewSnapshotDocument()
	doc.Update(snapshotWith("L0"))
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)
	records := map[string]manifest.Record{
		"pkg/foo": {Name: "pkg/foo", Type: "git", URL: "https://h/o/foo", LineKey: "L0"},
	}
	if err := sync.Render(records, doc); err != nil {
		t.Fatalf("render: %v", err)
	}

	doc.Reset()
	sync.Reposition(doc) // must not panic or drop controls

	if got := len(surface.Controls()); got != 1 {
		t.Fatalf("reposition on empty document changed controls: %d", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	surface := NewRecordingSurface()
	sync := NewSynchronizer(surface)
	sync.Clear()
	sync.Clear()
	if sync.ControlCount() != 0 {
		t.Fatalf("clear left controls behind")
	}
}

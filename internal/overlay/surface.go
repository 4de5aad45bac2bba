package overlay

import "sync"

// RecordingSurface keeps the placed controls in memory so the HTTP layer
// can serve them to the browser shim. It is also the surface the unit tests
// observe. Safe for concurrent use.
type RecordingSurface struct {
	mu       sync.Mutex
	controls []Control
	removes  int
}

func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{}
}

func (r *RecordingSurface) PlaceControl(c Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = append(r.controls, c)
}

func (r *RecordingSurface) MoveControl(name string, pos Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.controls {
		if r.controls[i].Name == name {
			r.controls[i].Pos = pos
			return
		}
	}
}

func (r *RecordingSurface) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = nil
	r.removes++
}

// Controls returns a copy of the current placements in placement order.
func (r *RecordingSurface) Controls() []Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Control, len(r.controls))
	copy(out, r.controls)
	return out
}

// RemoveAllCalls counts RemoveAll invocations; used by tests to verify
// clear-before-render ordering.
func (r *RecordingSurface) RemoveAllCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removes
}

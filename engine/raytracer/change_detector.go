package raytracer

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/entity"
)

// Resetter is reset when the detector observes a change.
type Resetter interface {
	Reset()
}

// ChangeDetector collapses every changed flag raised since the previous frame into at most
// one reset of its target.
type ChangeDetector struct {
	target  Resetter
	pending int
}

// NewChangeDetector creates a detector that resets target.
func NewChangeDetector(target Resetter) *ChangeDetector {
	return &ChangeDetector{target: target}
}

// Detect reads and clears the changed flag of every entity, active or not, and of every
// extra source. When at least one flag was set the target is reset exactly once.
//
// Parameters:
//   - entities: the entity snapshot of the frame
//   - extra: further change sources such as the camera
//
// Returns:
//   - int: the number of changed flags observed
func (d *ChangeDetector) Detect(entities []entity.Entity, extra ...ChangeSource) int {
	d.pending = 0
	for _, e := range entities {
		if e == nil {
			continue
		}
		d.observe(e)
	}
	for _, src := range extra {
		if src == nil {
			continue
		}
		d.observe(src)
	}

	changed := d.pending
	if d.pending > 0 {
		d.target.Reset()
		d.pending = 0
	}
	return changed
}

func (d *ChangeDetector) observe(src ChangeSource) {
	if src.HasChangedSinceLastCheck() {
		d.pending++
		src.ClearChangedFlag()
	}
}

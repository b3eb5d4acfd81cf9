// ABOUTME: Skip-point detection from dynamic-label item toggles
// ABOUTME: Emits a SkipItem each time the broadcaster starts a new item
package skip

import (
	"fmt"

	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
)

// Item is a recorded content change that playback can jump to.
// Items are immutable once created.
type Item struct {
	// AU is the number of AUs committed when the change arrived
	AU int64
	// Offset is the committed byte offset at the same instant
	Offset int64
	// DurationMs is the recorded duration at the same instant
	DurationMs int64
	// TextualRef points at the label that announced the change
	TextualRef string
	// VisualRef points at the most recent image, if any
	VisualRef string
}

func (it Item) String() string {
	return fmt.Sprintf("skip@%dms (au=%d off=%d)", it.DurationMs, it.AU, it.Offset)
}

// Mark is the writer-side position an update arrived at
type Mark struct {
	AU         int64
	Offset     int64
	DurationMs int64
}

// Filter decides whether a toggle flip becomes a SkipItem
type Filter func(t *metadata.Textual) bool

// AcceptAll turns every toggle flip into a SkipItem
func AcceptAll(*metadata.Textual) bool { return true }

// ByCategories accepts a flip only when the update carries an item of one of
// the given types
func ByCategories(types ...metadata.ContentType) Filter {
	want := make(map[metadata.ContentType]bool, len(types))
	for _, ct := range types {
		want[ct] = true
	}
	return func(t *metadata.Textual) bool {
		if t == nil {
			return false
		}
		for _, it := range t.Items {
			if want[it.Type] {
				return true
			}
		}
		return false
	}
}

// State of the detector
type State int

const (
	Unarmed State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "unarmed"
}

// Detector watches textual updates. It arms on the first tagged update and
// from then on reports every flip of the item toggle. It never disarms.
// A Detector is not safe for concurrent use.
type Detector struct {
	state      State
	lastToggle bool
	filter     Filter
}

// NewDetector creates an unarmed detector. A nil filter accepts all flips.
func NewDetector(filter Filter) *Detector {
	if filter == nil {
		filter = AcceptAll
	}
	return &Detector{filter: filter}
}

// State returns the current state
func (d *Detector) State() State {
	return d.state
}

// Observe feeds one textual update that was persisted at textualRef. It
// returns a new Item when the update flips the item toggle and the filter
// accepts it.
func (d *Detector) Observe(t *metadata.Textual, at Mark, textualRef, visualRef string) (Item, bool) {
	if t == nil {
		return Item{}, false
	}

	if d.state == Unarmed {
		if !t.Tagged() {
			return Item{}, false
		}
		d.state = Armed
		d.lastToggle = t.ItemToggle
		return Item{}, false
	}

	if t.ItemToggle == d.lastToggle {
		return Item{}, false
	}
	d.lastToggle = t.ItemToggle

	if !d.filter(t) {
		return Item{}, false
	}
	return Item{
		AU:         at.AU,
		Offset:     at.Offset,
		DurationMs: at.DurationMs,
		TextualRef: textualRef,
		VisualRef:  visualRef,
	}, true
}

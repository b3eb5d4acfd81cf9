// ABOUTME: Tests for the skip-point detector
// ABOUTME: Scripted label sequences with toggle flips and filters
package skip

import (
	"fmt"
	"testing"

	"github.com/Resonate-Protocol/timeshift-go/pkg/metadata"
)

func label(toggle bool, items ...metadata.Item) *metadata.Textual {
	return &metadata.Textual{Text: "label", Items: items, ItemToggle: toggle}
}

var artist = metadata.Item{Type: metadata.ItemArtist, Text: "Someone"}

func TestDetectorArmsOnTaggedUpdate(t *testing.T) {
	d := NewDetector(nil)

	// Untagged updates never arm, even when the toggle changes
	for i, toggle := range []bool{false, true, false} {
		if _, ok := d.Observe(label(toggle), Mark{AU: int64(i)}, "ref", ""); ok {
			t.Fatal("unarmed detector emitted an item")
		}
	}
	if d.State() != Unarmed {
		t.Fatalf("expected unarmed, got %s", d.State())
	}

	if _, ok := d.Observe(label(true, artist), Mark{AU: 5}, "ref", ""); ok {
		t.Fatal("arming update must not emit")
	}
	if d.State() != Armed {
		t.Fatalf("expected armed, got %s", d.State())
	}
}

func TestDetectorOneItemPerFlip(t *testing.T) {
	d := NewDetector(nil)
	d.Observe(label(false, artist), Mark{AU: 0}, "t0", "")

	toggles := []bool{false, true, true, false, false, false, true, false, true, true}
	var items []Item
	flips := 0
	last := false
	for i, toggle := range toggles {
		au := int64(10 * (i + 1))
		mark := Mark{AU: au, Offset: au * 100, DurationMs: au * 20}
		ref := fmt.Sprintf("t%d", au)
		if toggle != last {
			flips++
			last = toggle
		}
		if it, ok := d.Observe(label(toggle), mark, ref, "v1"); ok {
			if it.AU != au || it.Offset != au*100 || it.DurationMs != au*20 {
				t.Errorf("item %+v does not match write-time mark %+v", it, mark)
			}
			if it.TextualRef != ref || it.VisualRef != "v1" {
				t.Errorf("unexpected refs %q/%q", it.TextualRef, it.VisualRef)
			}
			items = append(items, it)
		}
	}

	if len(items) != flips {
		t.Fatalf("expected %d items, got %d", flips, len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].AU <= items[i-1].AU {
			t.Errorf("items not strictly increasing: %d after %d", items[i].AU, items[i-1].AU)
		}
	}
}

func TestDetectorFilter(t *testing.T) {
	d := NewDetector(ByCategories(metadata.ItemTitle, metadata.ItemBand))
	d.Observe(label(false, artist), Mark{}, "", "")

	// Flip without a wanted category is swallowed but still tracked
	if _, ok := d.Observe(label(true, artist), Mark{AU: 1}, "", ""); ok {
		t.Error("filter should reject artist-only update")
	}
	if _, ok := d.Observe(label(true, metadata.Item{Type: metadata.ItemTitle}), Mark{AU: 2}, "", ""); ok {
		t.Error("no flip, no item")
	}
	it, ok := d.Observe(label(false, metadata.Item{Type: metadata.ItemBand}), Mark{AU: 3}, "", "")
	if !ok || it.AU != 3 {
		t.Errorf("expected item at AU 3, got %+v/%v", it, ok)
	}
}

func TestByCategoriesNil(t *testing.T) {
	if ByCategories(metadata.ItemTitle)(nil) {
		t.Error("nil update must not pass a category filter")
	}
	if !AcceptAll(nil) {
		t.Error("AcceptAll must accept anything")
	}
}

// ABOUTME: AU-keyed index of metadata blob references
// ABOUTME: Sorted append-only entries with exact and tolerance-window lookup
package metadata

import (
	"fmt"
	"sort"
	"sync"
)

// Lookup windows, in AUs, used when jumping to an arbitrary position.
// Images change far less often than labels, so they get a wider window.
const (
	TextualTolerance = 20
	VisualTolerance  = 40
)

// Entry maps an AU sequence number to a blob reference
type Entry struct {
	AU  int64
	Ref string
}

// Index holds entries in non-decreasing AU order. One goroutine appends
// while another looks up.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
}

// Append adds an entry. au must not be smaller than the last appended key.
func (x *Index) Append(au int64, ref string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if n := len(x.entries); n > 0 && au < x.entries[n-1].AU {
		return fmt.Errorf("index entry %d appended after %d", au, x.entries[n-1].AU)
	}
	x.entries = append(x.entries, Entry{AU: au, Ref: ref})
	return nil
}

// FindNear returns the first entry whose key lies within
// [target-tolerance, target+tolerance]
func (x *Index) FindNear(target, tolerance int64) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].AU >= target-tolerance
	})
	if i < len(x.entries) && x.entries[i].AU <= target+tolerance {
		return x.entries[i], true
	}
	return Entry{}, false
}

// Exact returns the last entry appended at au
func (x *Index) Exact(au int64) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].AU > au
	})
	if i > 0 && x.entries[i-1].AU == au {
		return x.entries[i-1], true
	}
	return Entry{}, false
}

// Len returns the number of entries
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Reset drops every entry
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
}

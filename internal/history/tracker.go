package history

import "github.com/csheth/folio/internal/storage"

// Tracker coalesces scroll samples for one essay. Observe may be
// called on every scroll event; Flush runs once per rendered frame and
// performs at most one persisted write, so write frequency is bounded
// by the frame rate rather than the event rate.
type Tracker struct {
	store     storage.Store
	id        string
	wordCount int

	pending    bool
	offset     float64
	maxOffset  float64
	markedRead bool
}

// NewTracker starts tracking the given essay. The read flag already
// persisted (if any) seeds the sticky state so MarkRead is not re-sent.
func NewTracker(store storage.Store, id string, wordCount int) *Tracker {
	return &Tracker{
		store:      store,
		id:         id,
		wordCount:  wordCount,
		markedRead: IsRead(store, id),
	}
}

// Observe records the latest scroll sample. maxOffset is the total
// scrollable height; offset the current position within it.
func (t *Tracker) Observe(offset, maxOffset float64) {
	if offset < 0 {
		offset = 0
	}
	t.pending = true
	t.offset = offset
	t.maxOffset = maxOffset
}

// Flush persists the pending sample, if any, and flips the read flag
// once the observed fraction exceeds the threshold. Returns whether a
// write happened.
func (t *Tracker) Flush() bool {
	if !t.pending {
		return false
	}
	t.pending = false
	SaveScrollPosition(t.store, t.id, t.offset)
	if !t.markedRead && t.fraction() > readFraction {
		MarkRead(t.store, t.id, t.wordCount)
		t.markedRead = true
	}
	return true
}

func (t *Tracker) fraction() float64 {
	if t.maxOffset <= 0 {
		// Nothing to scroll: the whole essay is visible.
		return 1
	}
	return t.offset / t.maxOffset
}

// Package highlight persists text highlights grouped by essay and
// renders export artifacts for download.
package highlight

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/folio/internal/storage"
)

const storageKey = "annotations"

// Colors a highlight may carry.
var Colors = []string{"yellow", "green", "blue", "pink"}

// Highlight is one stored annotation. The offsets and selector are
// advisory position hints; they are not guaranteed to re-resolve to a
// range after the text re-renders.
type Highlight struct {
	ID             string    `json:"id"`
	EssaySlug      string    `json:"essaySlug"`
	Text           string    `json:"text"`
	Color          string    `json:"color"`
	StartOffset    int       `json:"startOffset"`
	EndOffset      int       `json:"endOffset"`
	ParentSelector string    `json:"parentSelector"`
	CreatedAt      time.Time `json:"createdAt"`
}

func load(store storage.Store) map[string][]Highlight {
	data, ok := store.Get(storageKey)
	if !ok {
		return map[string][]Highlight{}
	}
	var records map[string][]Highlight
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string][]Highlight{}
	}
	return records
}

func save(store storage.Store, records map[string][]Highlight) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return
	}
	store.Set(storageKey, data)
}

// Add assigns an identifier and timestamp, appends the highlight to
// the essay's list, persists, and returns the stored record.
func Add(store storage.Store, slug string, h Highlight) Highlight {
	h.ID = uuid.NewString()
	h.EssaySlug = slug
	h.CreatedAt = time.Now()
	if !validColor(h.Color) {
		h.Color = Colors[0]
	}
	records := load(store)
	records[slug] = append(records[slug], h)
	save(store, records)
	return h
}

// Remove deletes the highlight with the given id. The essay's entry is
// pruned once its list becomes empty. Reports whether anything changed.
func Remove(store storage.Store, slug, id string) bool {
	records := load(store)
	list, ok := records[slug]
	if !ok {
		return false
	}
	kept := list[:0]
	for _, h := range list {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	if len(kept) == 0 {
		delete(records, slug)
	} else {
		records[slug] = kept
	}
	save(store, records)
	return true
}

// All returns the whole store, grouped by essay slug.
func All(store storage.Store) map[string][]Highlight {
	return load(store)
}

// ForEssay returns the highlights recorded for one essay.
func ForEssay(store storage.Store, slug string) []Highlight {
	return load(store)[slug]
}

func validColor(color string) bool {
	for _, c := range Colors {
		if c == color {
			return true
		}
	}
	return false
}

// Package history tracks per-essay reading state: read flag, last
// scroll position, timestamp, and word count snapshot.
package history

import (
	"encoding/json"
	"time"

	"github.com/csheth/folio/internal/storage"
)

const storageKey = "reading-history"

// readFraction is the scroll fraction past which an essay counts as read.
const readFraction = 0.9

// Record is the persisted state for one essay.
type Record struct {
	Read           bool      `json:"read"`
	ScrollPosition float64   `json:"scrollPosition"`
	LastReadAt     time.Time `json:"lastReadAt"`
	WordCount      int       `json:"wordCount"`
}

// Stats aggregates read entries across the whole archive.
type Stats struct {
	ReadCount  int
	TotalWords int
}

func load(store storage.Store) map[string]Record {
	data, ok := store.Get(storageKey)
	if !ok {
		return map[string]Record{}
	}
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		return map[string]Record{}
	}
	return records
}

func save(store storage.Store, records map[string]Record) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return
	}
	store.Set(storageKey, data)
}

// MarkRead flags the essay as read. Idempotent; the flag is sticky and
// survives later scroll updates.
func MarkRead(store storage.Store, id string, wordCount int) {
	records := load(store)
	rec := records[id]
	rec.Read = true
	rec.LastReadAt = time.Now()
	if wordCount > 0 {
		rec.WordCount = wordCount
	}
	records[id] = rec
	save(store, records)
}

// SaveScrollPosition upserts the essay's scroll offset, preserving an
// existing read flag and a known word count.
func SaveScrollPosition(store storage.Store, id string, offset float64) {
	if offset < 0 {
		offset = 0
	}
	records := load(store)
	rec := records[id]
	rec.ScrollPosition = offset
	rec.LastReadAt = time.Now()
	records[id] = rec
	save(store, records)
}

// ScrollPosition returns the saved offset, zero when unknown.
func ScrollPosition(store storage.Store, id string) float64 {
	return load(store)[id].ScrollPosition
}

// IsRead reports whether the essay has been read.
func IsRead(store storage.Store, id string) bool {
	return load(store)[id].Read
}

// GetStats sums read count and total words across read entries.
func GetStats(store storage.Store) Stats {
	var stats Stats
	for _, rec := range load(store) {
		if !rec.Read {
			continue
		}
		stats.ReadCount++
		stats.TotalWords += rec.WordCount
	}
	return stats
}

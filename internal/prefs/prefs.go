// Package prefs holds the persisted reading preferences: theme, font
// family, font size, line height, and content width. Loading never
// fails; corrupt or legacy state is migrated or replaced with defaults.
package prefs

import (
	"encoding/json"

	"github.com/csheth/folio/internal/storage"
)

const storageKey = "preferences"

// Theme variants. ThemeWhite is the unstyled baseline: applying it
// removes the theme override instead of setting one, so the result
// matches the initial paint before any preference is loaded.
const (
	ThemeWhite = "white"
	ThemeSepia = "sepia"
	ThemeGray  = "gray"
	ThemeDark  = "dark"
)

const (
	FontPlain      = "plain"
	FontSerif      = "serif"
	FontAccessible = "accessible"
)

const (
	WidthNarrow = "narrow"
	WidthMedium = "medium"
	WidthWide   = "wide"
)

const (
	FontSizeMax   = 4
	LineHeightMax = 2
)

var themeCycle = []string{ThemeWhite, ThemeSepia, ThemeGray, ThemeDark}

// Legacy labels from earlier releases, rewritten at load time.
var (
	legacyThemes = map[string]string{
		"light": ThemeWhite,
		"cream": ThemeSepia,
		"night": ThemeDark,
	}
	legacyFamilies = map[string]string{
		"sans":     FontPlain,
		"dyslexic": FontAccessible,
	}
	legacyWidths = map[string]string{
		"normal": WidthMedium,
		"full":   WidthWide,
	}
)

// Record is the full preference state.
type Record struct {
	Theme        string `json:"theme"`
	FontFamily   string `json:"fontFamily"`
	FontSize     int    `json:"fontSize"`
	LineHeight   int    `json:"lineHeight"`
	ContentWidth string `json:"contentWidth"`
}

// Defaults returns the state used before any preference has been saved.
func Defaults() Record {
	return Record{
		Theme:        ThemeWhite,
		FontFamily:   FontPlain,
		FontSize:     2,
		LineHeight:   1,
		ContentWidth: WidthMedium,
	}
}

// Load returns the persisted record, migrating legacy values and
// filling missing fields. Any parse failure falls back to defaults.
func Load(store storage.Store) Record {
	rec := Defaults()
	data, ok := store.Get(storageKey)
	if !ok {
		return rec
	}
	// Decoding over the defaults keeps them for any omitted key, so a
	// partial record only overrides what it actually stores.
	if err := json.Unmarshal(data, &rec); err != nil {
		return Defaults()
	}
	return normalize(rec)
}

// Save persists the record.
func Save(store storage.Store, rec Record) {
	data, err := json.MarshalIndent(normalize(rec), "", "  ")
	if err != nil {
		return
	}
	store.Set(storageKey, data)
}

// CycleTheme advances the theme through its fixed cycle, wrapping.
func (r Record) CycleTheme() Record {
	for i, theme := range themeCycle {
		if theme == r.Theme {
			r.Theme = themeCycle[(i+1)%len(themeCycle)]
			return r
		}
	}
	r.Theme = themeCycle[0]
	return r
}

// AdjustFontSize moves the size level by delta, clamped to its bounds.
func (r Record) AdjustFontSize(delta int) Record {
	r.FontSize = clamp(r.FontSize+delta, 0, FontSizeMax)
	return r
}

// AdjustLineHeight moves the line-height level by delta, clamped.
func (r Record) AdjustLineHeight(delta int) Record {
	r.LineHeight = clamp(r.LineHeight+delta, 0, LineHeightMax)
	return r
}

// CycleFontFamily rotates plain -> serif -> accessible.
func (r Record) CycleFontFamily() Record {
	switch r.FontFamily {
	case FontPlain:
		r.FontFamily = FontSerif
	case FontSerif:
		r.FontFamily = FontAccessible
	default:
		r.FontFamily = FontPlain
	}
	return r
}

// CycleContentWidth rotates narrow -> medium -> wide.
func (r Record) CycleContentWidth() Record {
	switch r.ContentWidth {
	case WidthNarrow:
		r.ContentWidth = WidthMedium
	case WidthMedium:
		r.ContentWidth = WidthWide
	default:
		r.ContentWidth = WidthNarrow
	}
	return r
}

func normalize(rec Record) Record {
	if mapped, ok := legacyThemes[rec.Theme]; ok {
		rec.Theme = mapped
	}
	if !contains(themeCycle, rec.Theme) {
		rec.Theme = ThemeWhite
	}
	if mapped, ok := legacyFamilies[rec.FontFamily]; ok {
		rec.FontFamily = mapped
	}
	switch rec.FontFamily {
	case FontPlain, FontSerif, FontAccessible:
	default:
		rec.FontFamily = FontPlain
	}
	if mapped, ok := legacyWidths[rec.ContentWidth]; ok {
		rec.ContentWidth = mapped
	}
	switch rec.ContentWidth {
	case WidthNarrow, WidthMedium, WidthWide:
	default:
		rec.ContentWidth = WidthMedium
	}
	rec.FontSize = clamp(rec.FontSize, 0, FontSizeMax)
	rec.LineHeight = clamp(rec.LineHeight, 0, LineHeightMax)
	return rec
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

package prefs

import "fmt"

// Style variable names, mirroring the custom properties the reader
// publishes on its root scope.
const (
	VarTheme      = "theme"
	VarFontFamily = "font-family"
	VarFontSize   = "font-size"
	VarLineHeight = "line-height"
	VarMaxWidth   = "max-width"
)

var fontStacks = map[string]string{
	FontPlain:      `-apple-system, "Segoe UI", Helvetica, Arial, sans-serif`,
	FontSerif:      `Georgia, "Times New Roman", serif`,
	FontAccessible: `"Atkinson Hyperlegible", Verdana, sans-serif`,
}

var fontSizes = []int{16, 17, 18, 20, 22}

var lineHeights = []string{"1.5", "1.7", "1.9"}

var maxWidths = map[string]int{
	WidthNarrow: 580,
	WidthMedium: 680,
	WidthWide:   780,
}

// StyleVars is the declarative style description a record resolves to.
// It is data, not rendering: hosts translate it into whatever their
// surface supports, and tests assert on the description itself.
type StyleVars map[string]string

// Apply resolves a record into style variables. The baseline theme is
// represented by absence of the theme key, so switching back to it
// removes the override rather than setting one.
func Apply(rec Record) StyleVars {
	rec = normalize(rec)
	vars := StyleVars{
		VarFontFamily: fontStacks[rec.FontFamily],
		VarFontSize:   fmt.Sprintf("%dpx", fontSizes[rec.FontSize]),
		VarLineHeight: lineHeights[rec.LineHeight],
		VarMaxWidth:   fmt.Sprintf("%dpx", maxWidths[rec.ContentWidth]),
	}
	if rec.Theme != ThemeWhite {
		vars[VarTheme] = rec.Theme
	}
	return vars
}

// MaxWidthPx reports the resolved content width in nominal pixels.
func MaxWidthPx(rec Record) int {
	return maxWidths[normalize(rec).ContentWidth]
}

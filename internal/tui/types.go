package tui

type stage int

const (
	stageLibrary stage = iota
	stageReading
)

type interactionMode int

const (
	modeNormal interactionMode = iota
	modeFilter
	modeHighlight
	modeColorPick
)

const heroTagline = "A quiet reading room for the essay archive."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4

	// Header and footer rows around the reading viewport; mouse hit
	// testing subtracts the header to reach content coordinates.
	readingHeaderLines = 3
	readingFooterLines = 2
)

// Terminal cells map onto the footnote engine's nominal pixel grid at
// a fixed cell size, so the engine keeps its own breakpoint and margin
// constants and the model converts at the boundary.
const (
	cellWidth  = 8
	cellHeight = 16
)

// swipeCells is the horizontal drag distance that navigates between
// essays.
const swipeCells = 10

type keyHint struct {
	Key         string
	Description string
}

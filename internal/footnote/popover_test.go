package footnote

import (
	"testing"
	"time"
)

var testDefs = map[string]string{
	"1": "First note body.",
	"2": "Second note body.",
}

const (
	wideW   = 1280.0
	narrowW = 600.0
)

func newTestManager() (*Manager, *func()) {
	m := NewManager(testDefs)
	var fallback func()
	m.schedule = func(_ time.Duration, fn func()) {
		fallback = fn
	}
	return m, &fallback
}

func TestActivateUnknownNumberIsNoOp(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	if m.Activate("9", Rect{X: 100, Y: 300, W: 16, H: 18}, Size{W: wideW, H: 800}) {
		t.Fatal("unknown number must not open a popover")
	}
	if m.Current() != nil {
		t.Fatal("no popover expected")
	}
}

func TestActivateKindDependsOnViewportWidth(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	anchor := Rect{X: 100, Y: 300, W: 16, H: 18}

	if !m.Activate("1", anchor, Size{W: wideW, H: 800}) {
		t.Fatal("activation should succeed")
	}
	if got := m.Current(); got == nil || got.Kind != KindTooltip {
		t.Fatalf("wide viewport should open a tooltip, got %+v", got)
	}

	// The mode check happens at activation time, so the same manager
	// opens a sheet after the viewport narrows.
	if !m.Activate("1", anchor, Size{W: narrowW, H: 800}) {
		t.Fatal("activation should succeed")
	}
	if got := m.Current(); got == nil || got.Kind != KindSheet {
		t.Fatalf("narrow viewport should open a sheet, got %+v", got)
	}
}

func TestActivateReplacesOpenPopover(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	anchor := Rect{X: 100, Y: 300, W: 16, H: 18}
	viewport := Size{W: wideW, H: 800}

	m.Activate("1", anchor, viewport)
	m.Activate("2", Rect{X: 500, Y: 420, W: 16, H: 18}, viewport)

	got := m.Current()
	if got == nil || got.Number != "2" {
		t.Fatalf("expected exactly one popover showing number 2, got %+v", got)
	}
	if got.Body != testDefs["2"] {
		t.Fatalf("popover body: got %q", got.Body)
	}
}

func TestDismissRemovesViaTransitionEnd(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: wideW, H: 800})

	m.HandleEscape()
	if m.Open() {
		t.Fatal("dismissed popover must stop accepting interaction")
	}
	if m.Current() == nil {
		t.Fatal("popover should linger through its exit transition")
	}

	m.FinishTransition()
	if m.Current() != nil {
		t.Fatal("transition end must remove the popover")
	}
}

func TestDismissRemovesViaFallbackTimer(t *testing.T) {
	t.Parallel()

	m, fallback := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: wideW, H: 800})
	m.Dismiss()

	if *fallback == nil {
		t.Fatal("dismiss must schedule a fallback removal")
	}
	(*fallback)()
	if m.Current() != nil {
		t.Fatal("fallback timer must remove the popover")
	}

	// A transition-end signal arriving after the fallback is harmless.
	m.FinishTransition()
	if m.Current() != nil {
		t.Fatal("late transition end must not resurrect state")
	}
}

func TestActivateDuringExitCancelsOutright(t *testing.T) {
	t.Parallel()

	m, fallback := newTestManager()
	viewport := Size{W: wideW, H: 800}
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, viewport)
	m.Dismiss()

	m.Activate("2", Rect{Y: 500, W: 16, H: 18}, viewport)
	got := m.Current()
	if got == nil || got.Number != "2" || !m.Open() {
		t.Fatalf("expected popover 2 open, got %+v", got)
	}

	// The stale fallback from the cancelled dismiss must not close it.
	(*fallback)()
	if got := m.Current(); got == nil || got.Number != "2" {
		t.Fatal("stale fallback closed the replacement popover")
	}
}

func TestGlobalListenersBalance(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	binds, unbinds := 0, 0
	m.SetGlobalListeners(func() { binds++ }, func() { unbinds++ })
	viewport := Size{W: wideW, H: 800}

	for i := 0; i < 3; i++ {
		m.Activate("1", Rect{Y: 300, W: 16, H: 18}, viewport)
		m.Dismiss()
		m.FinishTransition()
	}
	if binds != 3 || unbinds != 3 {
		t.Fatalf("listener churn unbalanced: %d binds, %d unbinds", binds, unbinds)
	}

	// Replacement without an explicit dismiss still detaches first.
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, viewport)
	m.Activate("2", Rect{Y: 400, W: 16, H: 18}, viewport)
	if binds != 5 || unbinds != 4 {
		t.Fatalf("replacement churn unbalanced: %d binds, %d unbinds", binds, unbinds)
	}
}

func TestOutsideClickDismissesTooltip(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{X: 400, Y: 300, W: 16, H: 18}, Size{W: wideW, H: 800})
	bounds := m.Current().Tooltip.Bounds()

	m.HandleOutsideClick(Point{X: bounds.X + 1, Y: bounds.Y + 1})
	if !m.Open() {
		t.Fatal("click inside the tooltip must not dismiss it")
	}

	m.HandleOutsideClick(Point{X: bounds.X - 20, Y: bounds.Y - 20})
	if m.Open() {
		t.Fatal("click outside the tooltip must dismiss it")
	}
}

func TestSheetDragPastThresholdDismisses(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: narrowW, H: 800})

	m.DragStart(600)
	m.DragMove(690)
	if got := m.Current().Sheet.DragOffset; got != 90 {
		t.Fatalf("drag offset: got %v want 90", got)
	}
	if !m.DragEnd() {
		t.Fatal("a 90px drag must commit the dismiss")
	}
	m.FinishTransition()
	if m.Current() != nil {
		t.Fatal("sheet should be removed after the committed dismiss")
	}
}

func TestSheetDragUnderThresholdSpringsBack(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: narrowW, H: 800})

	m.DragStart(600)
	m.DragMove(650)
	if m.DragEnd() {
		t.Fatal("a 50px drag must not dismiss")
	}
	got := m.Current()
	if got == nil || !m.Open() {
		t.Fatal("sheet must stay open")
	}
	if got.Sheet.DragOffset != 0 || got.Sheet.Dragging {
		t.Fatalf("sheet should spring back to its open position, got %+v", got.Sheet)
	}
}

func TestSheetDragClampsUpwardMovement(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: narrowW, H: 800})

	m.DragStart(600)
	m.DragMove(550)
	if got := m.Current().Sheet.DragOffset; got != 0 {
		t.Fatalf("upward drag should clamp to 0, got %v", got)
	}
}

func TestBackdropClickDismissesSheet(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.Activate("1", Rect{Y: 300, W: 16, H: 18}, Size{W: narrowW, H: 800})
	m.HandleBackdropClick()
	if m.Open() {
		t.Fatal("backdrop click must dismiss the sheet")
	}
}

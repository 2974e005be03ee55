package footnote

import (
	"sync"
	"time"
)

// Kind of popover surface.
type Kind int

const (
	KindTooltip Kind = iota
	KindSheet
)

type phase int

const (
	phaseClosed phase = iota
	phaseOpen
	phaseClosing
)

// exitFallback bounds how long a dismissed popover may linger when the
// exit transition never signals completion.
const exitFallback = 300 * time.Millisecond

// SheetState tracks the bottom sheet's drag-to-dismiss gesture.
type SheetState struct {
	Dragging   bool
	DragOffset float64
}

// Popover is the single live popover, of either kind.
type Popover struct {
	Kind    Kind
	Number  string
	Body    string
	Tooltip TooltipLayout
	Sheet   SheetState
}

// Manager owns at most one live popover across the whole page. Opening
// a new one always tears the previous one down first, including its
// global listener registrations, so repeated open/close cycles cannot
// accumulate stale listeners.
type Manager struct {
	mu   sync.Mutex
	defs map[string]string

	phase   phase
	current *Popover
	epoch   int

	dragStartY float64

	bindGlobal   func()
	unbindGlobal func()
	globalBound  bool

	schedule func(time.Duration, func())
}

func NewManager(defs map[string]string) *Manager {
	return &Manager{
		defs: defs,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// SetGlobalListeners registers the hooks the host uses to attach and
// detach its document-level dismiss handlers (outside click, Escape).
// Bind runs when a popover opens, unbind as soon as it is dismissed.
func (m *Manager) SetGlobalListeners(bind, unbind func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindGlobal = bind
	m.unbindGlobal = unbind
}

// Activate opens the popover for a citation number. Numbers without a
// definition are a no-op. The kind is decided at activation time from
// the current viewport width, so resizing across the breakpoint
// changes behavior on the next activation. Any popover already open is
// cancelled outright, with no exit animation.
func (m *Manager) Activate(number string, anchor Rect, viewport Size) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.defs[number]
	if !ok {
		return false
	}
	m.teardownLocked()

	p := &Popover{Number: number, Body: body}
	if viewport.W < MobileBreakpoint {
		p.Kind = KindSheet
	} else {
		p.Kind = KindTooltip
		tip := MeasureTooltip(body, viewport)
		p.Tooltip = PlaceTooltip(anchor, tip, viewport)
	}
	m.current = p
	m.phase = phaseOpen
	if m.bindGlobal != nil {
		m.bindGlobal()
		m.globalBound = true
	}
	return true
}

// Current returns the live popover, or nil when closed. A popover in
// its exit transition is still reported so the host keeps rendering it
// until removal.
func (m *Manager) Current() *Popover {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == phaseClosed {
		return nil
	}
	return m.current
}

// Open reports whether a popover is open and accepting interaction.
func (m *Manager) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == phaseOpen
}

// Dismiss plays the exit transition. Removal is scheduled through both
// the transition-end signal (FinishTransition) and a fallback timer;
// whichever fires first wins, so cleanup happens even when the
// transition is interrupted or skipped. Listeners detach immediately.
func (m *Manager) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != phaseOpen {
		return
	}
	m.phase = phaseClosing
	m.detachLocked()
	epoch := m.epoch
	m.schedule(exitFallback, func() {
		m.finishClose(epoch)
	})
}

// FinishTransition is the host's transition-end signal for the popover
// currently exiting.
func (m *Manager) FinishTransition() {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	m.finishClose(epoch)
}

// HandleEscape dismisses the open popover.
func (m *Manager) HandleEscape() {
	m.Dismiss()
}

// HandleOutsideClick dismisses an open tooltip when the click misses
// its bounds. Clicks inside the tooltip are kept.
func (m *Manager) HandleOutsideClick(p Point) {
	m.mu.Lock()
	tooltipOpen := m.phase == phaseOpen && m.current != nil && m.current.Kind == KindTooltip
	inside := tooltipOpen && m.current.Tooltip.Bounds().Contains(p)
	m.mu.Unlock()
	if tooltipOpen && !inside {
		m.Dismiss()
	}
}

// HandleBackdropClick dismisses an open sheet.
func (m *Manager) HandleBackdropClick() {
	m.mu.Lock()
	sheetOpen := m.phase == phaseOpen && m.current != nil && m.current.Kind == KindSheet
	m.mu.Unlock()
	if sheetOpen {
		m.Dismiss()
	}
}

// DragStart begins a sheet drag at the given vertical position.
func (m *Manager) DragStart(y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != phaseOpen || m.current == nil || m.current.Kind != KindSheet {
		return
	}
	m.dragStartY = y
	m.current.Sheet.Dragging = true
	m.current.Sheet.DragOffset = 0
}

// DragMove updates the sheet offset; upward movement clamps to zero.
func (m *Manager) DragMove(y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != phaseOpen || m.current == nil || !m.current.Sheet.Dragging {
		return
	}
	offset := y - m.dragStartY
	if offset < 0 {
		offset = 0
	}
	m.current.Sheet.DragOffset = offset
}

// DragEnd commits the dismiss when the drag passed the threshold and
// reports whether it did; otherwise the sheet springs back to its open
// position.
func (m *Manager) DragEnd() bool {
	m.mu.Lock()
	if m.phase != phaseOpen || m.current == nil || !m.current.Sheet.Dragging {
		m.mu.Unlock()
		return false
	}
	m.current.Sheet.Dragging = false
	committed := m.current.Sheet.DragOffset > DragDismissThreshold
	if !committed {
		m.current.Sheet.DragOffset = 0
	}
	m.mu.Unlock()
	if committed {
		m.Dismiss()
	}
	return committed
}

func (m *Manager) finishClose(epoch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != phaseClosing || epoch != m.epoch {
		return
	}
	m.phase = phaseClosed
	m.current = nil
	m.epoch++
}

// teardownLocked cancels whatever popover exists, open or exiting,
// with no animation.
func (m *Manager) teardownLocked() {
	if m.phase == phaseClosed {
		return
	}
	m.phase = phaseClosed
	m.current = nil
	m.epoch++
	m.detachLocked()
}

func (m *Manager) detachLocked() {
	if m.globalBound && m.unbindGlobal != nil {
		m.unbindGlobal()
	}
	m.globalBound = false
}

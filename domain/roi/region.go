// Package roi tracks user-declared rectangular sub-areas of the displayed
// thermal image and translates them into raw sensor index windows for
// aggregation. Clicks arrive in display space: the raw grid mirrored along
// the column axis for human-viewing orientation.
package roi

import (
	"math"

	"github.com/google/uuid"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// MaxRegions bounds how many regions can exist simultaneously.
const MaxRegions = 4

// Mode is the session mode: regions are editable while Selecting, frozen
// while Live.
type Mode int

const (
	ModeSelecting Mode = iota
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModeSelecting:
		return "selecting"
	case ModeLive:
		return "live"
	default:
		return "unknown"
	}
}

// Point is a display-space coordinate.
type Point struct {
	X, Y float64
}

// Region is an immutable rectangular region of interest in display space,
// top-left origin plus extents. Width and Height are always positive.
type Region struct {
	ID     uuid.UUID
	X, Y   float64
	Width  float64
	Height float64
}

// InvalidRegionError reports a degenerate or over-limit region definition.
// The pending corner is discarded but no other state changes.
type InvalidRegionError struct {
	Reason string
}

func (e *InvalidRegionError) Error() string { return "invalid region: " + e.Reason }

// SelectionState classifies the outcome of a BeginSelection call.
type SelectionState int

const (
	// SelectionIgnored means the click changed nothing: the manager was not
	// in Selecting mode, or the click fell outside the display bounds.
	SelectionIgnored SelectionState = iota
	// SelectionArmed means the click was recorded as the pending first corner.
	SelectionArmed
	// SelectionAdded means the click completed a new region.
	SelectionAdded
)

// Selection is the outcome of BeginSelection. Region is set when State is
// SelectionAdded.
type Selection struct {
	State  SelectionState
	Region Region
}

// Manager owns the region set, the pending first corner and the mode.
// Not safe for concurrent use; all calls happen on the driver goroutine.
type Manager struct {
	regions []Region
	pending *Point
	mode    Mode
}

// NewManager returns an empty manager in Selecting mode.
func NewManager() *Manager { return &Manager{} }

// BeginSelection processes one click in display space. The first valid click
// arms the pending corner; the second completes the bounding rectangle of the
// two points. Degenerate (zero width or height) and over-limit definitions
// return *InvalidRegionError and discard the pending corner.
func (m *Manager) BeginSelection(p Point) (Selection, error) {
	if m.mode != ModeSelecting {
		return Selection{State: SelectionIgnored}, nil
	}
	if p.X < 0 || p.X > sensor.MaxCol || p.Y < 0 || p.Y > sensor.MaxRow {
		return Selection{State: SelectionIgnored}, nil
	}
	if m.pending == nil {
		m.pending = &Point{X: p.X, Y: p.Y}
		return Selection{State: SelectionArmed}, nil
	}
	first := *m.pending
	m.pending = nil
	x0, x1 := math.Min(first.X, p.X), math.Max(first.X, p.X)
	y0, y1 := math.Min(first.Y, p.Y), math.Max(first.Y, p.Y)
	width, height := x1-x0, y1-y0
	if width == 0 || height == 0 {
		return Selection{}, &InvalidRegionError{Reason: "zero size"}
	}
	if len(m.regions) >= MaxRegions {
		return Selection{}, &InvalidRegionError{Reason: "region limit reached"}
	}
	r := Region{ID: uuid.New(), X: x0, Y: y0, Width: width, Height: height}
	m.regions = append(m.regions, r)
	return Selection{State: SelectionAdded, Region: r}, nil
}

// Reset removes all regions and the pending corner. Always succeeds.
func (m *Manager) Reset() {
	m.regions = nil
	m.pending = nil
}

// EnterEditMode forces Selecting mode, exiting Live if active, and clears the
// pending corner. Idempotent.
func (m *Manager) EnterEditMode() {
	m.mode = ModeSelecting
	m.pending = nil
}

// SetLive switches between Live and Selecting. Entering Live clears the
// pending corner; while Live, BeginSelection is a no-op.
func (m *Manager) SetLive(active bool) {
	if active {
		m.mode = ModeLive
		m.pending = nil
		return
	}
	m.mode = ModeSelecting
}

// Regions returns a copy of the region slice in creation order.
func (m *Manager) Regions() []Region {
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// Count returns the number of regions.
func (m *Manager) Count() int { return len(m.regions) }

// Mode returns the current mode.
func (m *Manager) Mode() Mode { return m.mode }

// Live reports whether the manager is in Live mode.
func (m *Manager) Live() bool { return m.mode == ModeLive }

// Pending returns a copy of the pending first corner, or nil.
func (m *Manager) Pending() *Point {
	if m.pending == nil {
		return nil
	}
	p := *m.pending
	return &p
}

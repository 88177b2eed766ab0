package acquire

import (
	"time"

	"github.com/tbeaulieu/mlxcam-go/domain/roi"
	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// InputEvent is a user interaction produced by a rendering collaborator.
// The driver applies events strictly interleaved with ticks, so handlers
// never race with acquisition.
type InputEvent interface{ inputEvent() }

// ClickEvent is a pointer click in display-space coordinates.
type ClickEvent struct{ X, Y float64 }

// ToggleLiveEvent flips between Live and Selecting mode.
type ToggleLiveEvent struct{}

// ResetEvent removes all regions.
type ResetEvent struct{}

// EditEvent forces Selecting mode for region editing.
type EditEvent struct{}

func (ClickEvent) inputEvent()      {}
func (ToggleLiveEvent) inputEvent() {}
func (ResetEvent) inputEvent()      {}
func (EditEvent) inputEvent()       {}

// Change classifies what a processed input event mutated.
type Change int

const (
	ChangeNone Change = iota
	ChangeMode
	ChangeRegions
)

// SessionListener is called after every input event that mutated session
// state. Listeners run on the driver goroutine and must return quickly.
type SessionListener func(Change)

// SnapshotListener receives each published acquisition snapshot on the
// driver goroutine; implementations must return quickly.
type SnapshotListener func(*Snapshot)

// RecordSink persists one frame record per tick. A write failure is fatal to
// the acquisition run.
type RecordSink interface {
	Write(t time.Time, values []float64) error
}

// RegionMean pairs a region with its raw index window and windowed mean for
// one frame. Mean is NaN when the window collapses after clamping.
type RegionMean struct {
	Region roi.Region
	Window roi.Window
	Mean   float64
}

// Snapshot carries one acquired frame with its per-region aggregates and the
// status text published alongside it.
type Snapshot struct {
	Frame    *sensor.Frame
	Means    []RegionMean
	Status   string
	Sequence uint64
}

// Stats summarises loop behaviour for instrumentation.
type Stats struct {
	Ticks          uint64
	Records        uint64
	SensorFaults   uint64
	LastRate       float64
	LastFrame      time.Time
	LatestFrameAge time.Duration
	Sequence       uint64
}

// Package sensor defines the thermal frame geometry and the frame source
// contract shared by the acquisition loop and its simulated, replayed and
// hardware-backed implementations.
package sensor

import "time"

// Fixed raw sensor geometry of the MLX90640 class array.
const (
	Rows       = 24
	Cols       = 32
	PixelCount = Rows * Cols
	MaxRow     = Rows - 1
	MaxCol     = Cols - 1

	// NominalHz is the configured sensor refresh cadence. The observed tick
	// rate is best-effort, not guaranteed.
	NominalHz = 4
)

// Frame is one captured thermal frame: PixelCount temperature samples in
// degrees Celsius, row-major in raw sensor order, plus the capture timestamp.
type Frame struct {
	Values []float64
	Time   time.Time
}

// At returns the sample at the given raw grid position. Bounds are the
// caller's responsibility.
func (f *Frame) At(row, col int) float64 {
	return f.Values[row*Cols+col]
}

// Min returns the smallest sample in the frame.
func (f *Frame) Min() float64 {
	m := f.Values[0]
	for _, v := range f.Values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest sample in the frame.
func (f *Frame) Max() float64 {
	m := f.Values[0]
	for _, v := range f.Values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Values: make([]float64, len(f.Values)), Time: f.Time}
	copy(c.Values, f.Values)
	return c
}

// Source yields successive sensor frames.
type Source interface {
	// NextFrame fills dst (length PixelCount) with the newest frame,
	// blocking until one is available at the source's cadence. A transient
	// read failure is reported as a *Fault; the caller retries on its next
	// tick instead of terminating.
	NextFrame(dst []float64) error
}

// Fault is a transient sensor read failure.
type Fault struct {
	Op  string
	Err error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return "sensor fault: " + f.Op
	}
	return "sensor fault: " + f.Op + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

package roi

import (
	"math"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// Window is an inclusive raw sensor index window derived from a display-space
// region.
type Window struct {
	ColMin, ColMax int
	RowMin, RowMax int
}

// WindowFor translates a display-space rectangle into raw sensor indices.
// The displayed image mirrors the raw grid along the column axis, so the
// column bounds flip: display [x, x+w] maps to raw [31-(x+w), 31-x]. Bounds
// round half to even and clamp to the array extents.
func WindowFor(r Region) Window {
	return Window{
		ColMin: clampInt(roundEven(sensor.MaxCol-(r.X+r.Width)), 0, sensor.MaxCol),
		ColMax: clampInt(roundEven(sensor.MaxCol-r.X), 0, sensor.MaxCol),
		RowMin: clampInt(roundEven(r.Y), 0, sensor.MaxRow),
		RowMax: clampInt(roundEven(r.Y+r.Height), 0, sensor.MaxRow),
	}
}

// Valid reports whether the window spans at least one step on both axes
// after clamping. A collapsed window has no defined aggregate.
func (w Window) Valid() bool { return w.ColMax > w.ColMin && w.RowMax > w.RowMin }

// Mean returns the arithmetic mean of the frame samples inside the inclusive
// window, or NaN when the window is degenerate.
func (w Window) Mean(f *sensor.Frame) float64 {
	if !w.Valid() {
		return math.NaN()
	}
	var sum float64
	n := 0
	for row := w.RowMin; row <= w.RowMax; row++ {
		for col := w.ColMin; col <= w.ColMax; col++ {
			sum += f.At(row, col)
			n++
		}
	}
	return sum / float64(n)
}

func roundEven(v float64) int { return int(math.RoundToEven(v)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

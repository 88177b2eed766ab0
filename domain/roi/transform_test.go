package roi

import (
	"math"
	"testing"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// uniformFrame returns a frame filled with v.
func uniformFrame(v float64) *sensor.Frame {
	f := &sensor.Frame{Values: make([]float64, sensor.PixelCount)}
	for i := range f.Values {
		f.Values[i] = v
	}
	return f
}

func TestWindowFor_MirrorsColumns(t *testing.T) {
	w := WindowFor(Region{X: 20, Y: 5, Width: 2, Height: 1})
	want := Window{ColMin: 9, ColMax: 11, RowMin: 5, RowMax: 6}
	if w != want {
		t.Fatalf("window = %+v, want %+v", w, want)
	}
}

func TestWindow_MeanOverHotPixel(t *testing.T) {
	f := uniformFrame(20.0)
	f.Values[5*sensor.Cols+10] = 37.2
	w := WindowFor(Region{X: 20, Y: 5, Width: 2, Height: 1})
	// 2x3 inclusive window: one 37.2 sample and five 20.0 samples.
	want := (37.2 + 5*20.0) / 6
	got := w.Mean(f)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("mean = %v, want %v", got, want)
	}
}

func TestWindow_CollapsedIsNaN(t *testing.T) {
	// Narrow sliver near the display's right edge: both column bounds round
	// to the same raw index.
	w := WindowFor(Region{X: 30.6, Y: 5, Width: 0.3, Height: 4})
	if w.Valid() {
		t.Fatalf("expected collapsed window, got %+v", w)
	}
	if got := w.Mean(uniformFrame(20.0)); !math.IsNaN(got) {
		t.Fatalf("mean of collapsed window = %v, want NaN", got)
	}
}

func TestWindow_FullFrame(t *testing.T) {
	f := uniformFrame(21.5)
	w := WindowFor(Region{X: 0, Y: 0, Width: 31, Height: 23})
	want := Window{ColMin: 0, ColMax: 31, RowMin: 0, RowMax: 23}
	if w != want {
		t.Fatalf("window = %+v, want %+v", w, want)
	}
	if got := w.Mean(f); math.Abs(got-21.5) > 1e-9 {
		t.Fatalf("mean = %v, want 21.5", got)
	}
}

func TestWindowFor_ClampsToArray(t *testing.T) {
	// Row span extends past the bottom edge once rounded.
	w := WindowFor(Region{X: 2, Y: 22.8, Width: 4, Height: 0.9})
	if w.RowMax != sensor.MaxRow {
		t.Fatalf("RowMax = %d, want %d", w.RowMax, sensor.MaxRow)
	}
}

func TestWindowFor_RoundsHalfToEven(t *testing.T) {
	// 31-(10+10.5) = 10.5 rounds down to the even 10.
	w := WindowFor(Region{X: 10, Y: 0, Width: 10.5, Height: 2})
	if w.ColMin != 10 {
		t.Fatalf("ColMin = %d, want 10", w.ColMin)
	}
	// 31-10.5 = 20.5 rounds down to the even 20.
	w = WindowFor(Region{X: 10.5, Y: 0, Width: 2, Height: 2})
	if w.ColMax != 20 {
		t.Fatalf("ColMax = %d, want 20", w.ColMax)
	}
}

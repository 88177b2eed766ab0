package sensor

import (
	"errors"
	"math"
	"testing"
)

func TestSimSource_DeterministicForSeed(t *testing.T) {
	a := NewSimSource(7, 3, 0)
	b := NewSimSource(7, 3, 0)
	fa := make([]float64, PixelCount)
	fb := make([]float64, PixelCount)
	for i := 0; i < 5; i++ {
		if err := a.NextFrame(fa); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if err := b.NextFrame(fb); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		for j := range fa {
			if fa[j] != fb[j] {
				t.Fatalf("frame %d pixel %d differs: %v vs %v", i, j, fa[j], fb[j])
			}
		}
	}
}

func TestSimSource_PlausibleRange(t *testing.T) {
	s := NewSimSource(1, 2, 0)
	buf := make([]float64, PixelCount)
	for i := 0; i < 20; i++ {
		if err := s.NextFrame(buf); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		for j, v := range buf {
			if math.IsNaN(v) || v < 0 || v > 80 {
				t.Fatalf("frame %d pixel %d out of plausible range: %v", i, j, v)
			}
		}
	}
}

func TestSimSource_FaultCadence(t *testing.T) {
	s := NewSimSource(1, 0, 3)
	buf := make([]float64, PixelCount)
	var faults int
	for i := 1; i <= 9; i++ {
		err := s.NextFrame(buf)
		if i%3 == 0 {
			if err == nil {
				t.Fatalf("read %d: expected fault", i)
			}
			var f *Fault
			if !errors.As(err, &f) {
				t.Fatalf("read %d: error %v is not a *Fault", i, err)
			}
			faults++
			continue
		}
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if faults != 3 {
		t.Fatalf("expected 3 faults in 9 reads, got %d", faults)
	}
}

func TestSimSource_RejectsShortBuffer(t *testing.T) {
	s := NewSimSource(1, 1, 0)
	if err := s.NextFrame(make([]float64, 10)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

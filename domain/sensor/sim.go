package sensor

import (
	"math/rand"

	"github.com/pkg/errors"
)

const (
	simBaseTemp     = 21.0
	simBaseDriftMax = 0.02
	simBaseMin      = 18.0
	simBaseMax      = 26.0
	simSpotAmpMin   = 8.0
	simSpotAmpMax   = 16.0
	simSpotSpread   = 6.0
	simSpotJitter   = 0.1
	simPixelNoise   = 0.3
)

// hotspot is a simulated warm feature drifting across the array.
type hotspot struct {
	x, y   float64
	vx, vy float64
	amp    float64
}

// SimSource is a deterministic simulated sensor: an ambient base temperature
// with slow drift, a handful of drifting hotspots and per-pixel noise. With
// the same seed it produces the same frame sequence.
// Not safe for concurrent use; call NextFrame from a single goroutine.
type SimSource struct {
	rnd        *rand.Rand
	base       float64
	spots      []hotspot
	faultEvery uint64
	reads      uint64
}

// NewSimSource returns a simulated source seeded for reproducible output.
// When faultEvery > 0 every faultEvery-th read fails with a *Fault so the
// caller's retry handling can be exercised.
func NewSimSource(seed int64, hotspots, faultEvery int) *SimSource {
	rnd := rand.New(rand.NewSource(seed))
	s := &SimSource{rnd: rnd, base: simBaseTemp}
	if faultEvery > 0 {
		s.faultEvery = uint64(faultEvery)
	}
	for i := 0; i < hotspots; i++ {
		s.spots = append(s.spots, hotspot{
			x:   rnd.Float64() * MaxCol,
			y:   rnd.Float64() * MaxRow,
			vx:  (rnd.Float64() - 0.5) * 0.6,
			vy:  (rnd.Float64() - 0.5) * 0.6,
			amp: simSpotAmpMin + rnd.Float64()*(simSpotAmpMax-simSpotAmpMin),
		})
	}
	return s
}

// NextFrame fills dst with the next simulated frame.
func (s *SimSource) NextFrame(dst []float64) error {
	if len(dst) != PixelCount {
		return errors.Errorf("sim: buffer length %d, want %d", len(dst), PixelCount)
	}
	s.reads++
	if s.faultEvery > 0 && s.reads%s.faultEvery == 0 {
		return &Fault{Op: "simulated read failure"}
	}
	s.base += (s.rnd.Float64() - 0.5) * simBaseDriftMax
	if s.base < simBaseMin {
		s.base = simBaseMin
	} else if s.base > simBaseMax {
		s.base = simBaseMax
	}
	s.step()
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			v := s.base + (s.rnd.Float64()-0.5)*simPixelNoise
			for i := range s.spots {
				sp := &s.spots[i]
				dx := float64(col) - sp.x
				dy := float64(row) - sp.y
				v += sp.amp / (1 + (dx*dx+dy*dy)/simSpotSpread)
			}
			dst[row*Cols+col] = v
		}
	}
	return nil
}

// step advances hotspot positions, bouncing off the array edges.
func (s *SimSource) step() {
	for i := range s.spots {
		sp := &s.spots[i]
		sp.x += sp.vx + (s.rnd.Float64()-0.5)*simSpotJitter
		sp.y += sp.vy + (s.rnd.Float64()-0.5)*simSpotJitter
		if sp.x < 0 {
			sp.x, sp.vx = 0, -sp.vx
		} else if sp.x > MaxCol {
			sp.x, sp.vx = MaxCol, -sp.vx
		}
		if sp.y < 0 {
			sp.y, sp.vy = 0, -sp.vy
		} else if sp.y > MaxRow {
			sp.y, sp.vy = MaxRow, -sp.vy
		}
	}
}

var _ Source = (*SimSource)(nil)

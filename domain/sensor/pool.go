package sensor

import "sync"

// Lightweight reusable buffer pool so steady-state acquisition does not
// allocate a fresh 768-float slice per tick. If consumers never recycle, the
// behavior degrades gracefully to per-tick allocation.

var bufferPool sync.Pool // stores []float64 of length PixelCount

// AcquireBuffer returns a reusable pixel buffer of length PixelCount.
func AcquireBuffer() []float64 {
	if v := bufferPool.Get(); v != nil {
		return v.([]float64)
	}
	return make([]float64, PixelCount)
}

// RecycleBuffer returns the buffer to the pool for potential reuse. The
// buffer must no longer be accessed by the caller after recycling.
func RecycleBuffer(buf []float64) {
	if len(buf) != PixelCount {
		return
	}
	bufferPool.Put(buf)
}

package acquire

import (
	"fmt"
	"time"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// Estimate is the startup recording-capacity estimate: how long the output
// volume can absorb frame records at the configured cadence. It is computed
// once and re-displayed unchanged on every status line.
type Estimate struct {
	FreeBytes     uint64
	BytesPerFrame int
	Frames        uint64
	Seconds       float64
	Hours         float64
}

// EstimateCapacity derives recording capacity from the free bytes on the
// output volume and the per-frame record size at the given refresh cadence.
func EstimateCapacity(freeBytes uint64, bytesPerFrame int, refreshHz float64) Estimate {
	e := Estimate{FreeBytes: freeBytes, BytesPerFrame: bytesPerFrame}
	if bytesPerFrame <= 0 || refreshHz <= 0 {
		return e
	}
	e.Frames = freeBytes / uint64(bytesPerFrame)
	e.Seconds = float64(e.Frames) / refreshHz
	e.Hours = e.Seconds / 3600
	return e
}

// RecordSizeEstimate returns the byte length of one frame record with every
// sample at zero, the per-frame size used for capacity estimation.
func RecordSizeEstimate() int {
	return len(sensor.AppendRecord(nil, time.Unix(0, 0), make([]float64, sensor.PixelCount)))
}

// String renders the status-line form of the estimate.
func (e Estimate) String() string {
	return fmt.Sprintf("Recording capacity: %.1f s (~%.2f h)", e.Seconds, e.Hours)
}

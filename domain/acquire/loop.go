// Package acquire implements the tick-driven acquisition core: the session
// mode machine fed by generic input events, and the loop that fetches frames,
// persists them and aggregates each region of interest against the newest
// frame.
package acquire

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/tbeaulieu/mlxcam-go/domain/roi"
	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// rateReportEvery controls how often observed throughput is derived from the
// tick duration history.
const rateReportEvery = 10

// Loop performs one acquisition step per Tick: fetch the newest frame,
// persist it, aggregate each region against it and publish the result. Ticks
// are driven by an external fixed-interval scheduler; the loop never sleeps
// or spins internally. Tick and AddListener run on the driver goroutine;
// Latest and Stats may be read from any goroutine.
type Loop struct {
	logger   *slog.Logger
	session  *Session
	source   sensor.Source
	sink     RecordSink
	capacity Estimate

	now func() time.Time // injected for deterministic tests

	latest    atomic.Pointer[Snapshot]
	listeners []SnapshotListener

	ticks    atomic.Uint64
	records  atomic.Uint64
	faults   atomic.Uint64
	sequence atomic.Uint64
	rateBits atomic.Uint64
	lastNano atomic.Int64

	durations []time.Duration // per-tick elapsed history for throughput
	buf       []float64
}

// NewLoop wires an acquisition loop. The capacity estimate is computed once
// at startup and re-displayed unchanged on every status line.
func NewLoop(logger *slog.Logger, session *Session, source sensor.Source, sink RecordSink, capacity Estimate) *Loop {
	return &Loop{
		logger:   logger,
		session:  session,
		source:   source,
		sink:     sink,
		capacity: capacity,
		now:      time.Now,
		buf:      sensor.AcquireBuffer(),
	}
}

// AddListener registers a listener for published snapshots.
func (l *Loop) AddListener(fn SnapshotListener) {
	if fn != nil {
		l.listeners = append(l.listeners, fn)
	}
}

// Tick performs one acquisition step stamped at now. While the session is
// Selecting it does nothing. A sensor fault is logged and retried on the
// next tick; a sink write failure is returned and terminates the run.
func (l *Loop) Tick(now time.Time) error {
	if !l.session.Live() {
		return nil
	}
	start := l.now()
	if err := l.source.NextFrame(l.buf); err != nil {
		l.faults.Add(1)
		if l.logger != nil {
			l.logger.Error("frame fetch failed", "err", err.Error())
		}
		return nil
	}
	frame := &sensor.Frame{Values: append([]float64(nil), l.buf...), Time: now}
	if err := l.sink.Write(now, frame.Values); err != nil {
		return errors.Wrap(err, "write frame record")
	}
	l.records.Add(1)

	regions := l.session.Regions()
	means := make([]RegionMean, len(regions))
	for i, r := range regions {
		w := roi.WindowFor(r)
		means[i] = RegionMean{Region: r, Window: w, Mean: w.Mean(frame)}
	}

	snap := &Snapshot{
		Frame:    frame,
		Means:    means,
		Status:   l.statusLine(means),
		Sequence: l.sequence.Add(1),
	}
	l.latest.Store(snap)
	l.lastNano.Store(now.UnixNano())
	for _, fn := range l.listeners {
		fn(snap)
	}

	l.durations = append(l.durations, l.now().Sub(start))
	l.ticks.Add(1)
	if len(l.durations)%rateReportEvery == 0 {
		l.reportRate()
	}
	return nil
}

// reportRate derives observed throughput as ticks over the summed tick
// durations.
func (l *Loop) reportRate() {
	var sum time.Duration
	for _, d := range l.durations {
		sum += d
	}
	if sum <= 0 {
		return
	}
	rate := float64(len(l.durations)) / sum.Seconds()
	l.rateBits.Store(math.Float64bits(rate))
	if l.logger != nil {
		l.logger.Info("sample rate", "fps", rate)
	}
}

// statusLine builds the per-tick status text: region aggregates in creation
// order at one decimal, then the startup capacity estimate.
func (l *Loop) statusLine(means []RegionMean) string {
	var b strings.Builder
	b.WriteString("ROI Averages:\n")
	for i, rm := range means {
		fmt.Fprintf(&b, "Region %d: %.1f °C   ", i+1, rm.Mean)
	}
	b.WriteString("\n")
	b.WriteString(l.capacity.String())
	return b.String()
}

// Latest returns the most recently published snapshot, or nil before the
// first live tick.
func (l *Loop) Latest() *Snapshot { return l.latest.Load() }

// Stats returns instrumentation counters. Safe from any goroutine.
func (l *Loop) Stats() Stats {
	var rate float64
	if bits := l.rateBits.Load(); bits != 0 {
		rate = math.Float64frombits(bits)
	}
	var last time.Time
	var age time.Duration
	if n := l.lastNano.Load(); n != 0 {
		last = time.Unix(0, n)
		age = time.Since(last)
	}
	return Stats{
		Ticks:          l.ticks.Load(),
		Records:        l.records.Load(),
		SensorFaults:   l.faults.Load(),
		LastRate:       rate,
		LastFrame:      last,
		LatestFrameAge: age,
		Sequence:       l.sequence.Load(),
	}
}

// Close releases the loop's reusable frame buffer.
func (l *Loop) Close() {
	if l.buf != nil {
		sensor.RecycleBuffer(l.buf)
		l.buf = nil
	}
}

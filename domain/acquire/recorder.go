package acquire

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

const (
	recordFilePrefix     = "mlx90640_data_"
	recordFileTimeLayout = "20060102_150405"
)

// Recorder is the append-only frame log. Every record is flushed as it is
// written so no buffered data is lost on abrupt termination. The recorder is
// exclusively owned by the acquisition loop; there is no other writer.
type Recorder struct {
	path string
	f    *os.File
	w    *bufio.Writer
	line []byte
}

// NewRecorder creates a uniquely named frame log in dir, stamped with the
// start time down to seconds.
func NewRecorder(dir string, now time.Time) (*Recorder, error) {
	path := filepath.Join(dir, recordFilePrefix+now.Format(recordFileTimeLayout)+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create frame log")
	}
	return &Recorder{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the frame log path.
func (r *Recorder) Path() string { return r.path }

// Write appends one frame record and flushes it.
func (r *Recorder) Write(t time.Time, values []float64) error {
	r.line = sensor.AppendRecord(r.line[:0], t, values)
	if _, err := r.w.Write(r.line); err != nil {
		return errors.Wrap(err, "append frame record")
	}
	return errors.Wrap(r.w.Flush(), "flush frame record")
}

// Close flushes and closes the frame log.
func (r *Recorder) Close() error {
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return errors.Wrap(err, "flush frame log")
	}
	return errors.Wrap(r.f.Close(), "close frame log")
}

var _ RecordSink = (*Recorder)(nil)

package sensor

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ReplaySource replays frames from a previously recorded frame log, wrapping
// to the start of the file at EOF. Recorded timestamps are exposed via
// LastTimestamp; pacing is the caller's concern.
// Not safe for concurrent use; call NextFrame from a single goroutine.
type ReplaySource struct {
	path   string
	logger *slog.Logger
	f      *os.File
	sc     *bufio.Scanner
	ts     time.Time
}

// NewReplaySource opens a recorded frame log. It fails when the file cannot
// be opened or contains no parsable record, so a bad path surfaces at
// construction instead of as an endless stream of faults.
func NewReplaySource(path string, logger *slog.Logger) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open replay log")
	}
	r := &ReplaySource{path: path, logger: logger, f: f, sc: bufio.NewScanner(f)}
	probe := make([]float64, PixelCount)
	ok := false
	for r.sc.Scan() {
		if _, err := ParseRecord(strings.TrimSpace(r.sc.Text()), probe); err == nil {
			ok = true
			break
		}
	}
	if err := r.sc.Err(); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "scan replay log")
	}
	if !ok {
		f.Close()
		return nil, errors.Errorf("no frame records in %s", path)
	}
	if err := r.rewind(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *ReplaySource) rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewind replay log")
	}
	r.sc = bufio.NewScanner(r.f)
	return nil
}

// NextFrame serves the next recorded frame. Malformed lines are skipped with
// a logged warning.
func (r *ReplaySource) NextFrame(dst []float64) error {
	if len(dst) != PixelCount {
		return errors.Errorf("replay: buffer length %d, want %d", len(dst), PixelCount)
	}
	wrapped := false
	for {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return &Fault{Op: "read replay log", Err: err}
			}
			if wrapped {
				return &Fault{Op: "replay log exhausted"}
			}
			if err := r.rewind(); err != nil {
				return &Fault{Op: "rewind replay log", Err: err}
			}
			wrapped = true
			continue
		}
		line := strings.TrimSpace(r.sc.Text())
		if line == "" {
			continue
		}
		ts, err := ParseRecord(line, dst)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping malformed record", "path", r.path, "error", err)
			}
			continue
		}
		r.ts = ts
		return nil
	}
}

// LastTimestamp returns the recorded timestamp of the last replayed frame.
func (r *ReplaySource) LastTimestamp() time.Time { return r.ts }

// Close closes the underlying log file.
func (r *ReplaySource) Close() error { return r.f.Close() }

var _ Source = (*ReplaySource)(nil)

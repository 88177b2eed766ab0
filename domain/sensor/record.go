package sensor

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the timestamp layout used in frame log records.
const TimeLayout = "2006-01-02 15:04:05"

// AppendRecord appends one frame log record to dst and returns the extended
// slice. A record is the timestamp, a space, the PixelCount samples formatted
// with exactly 2 decimal digits and comma-separated, and a trailing newline.
func AppendRecord(dst []byte, t time.Time, values []float64) []byte {
	dst = t.AppendFormat(dst, TimeLayout)
	dst = append(dst, ' ')
	for i, v := range values {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendFloat(dst, v, 'f', 2, 64)
	}
	return append(dst, '\n')
}

// ParseRecord parses one frame log record line (without trailing newline)
// into dst and returns the recorded timestamp.
func ParseRecord(line string, dst []float64) (time.Time, error) {
	if len(dst) != PixelCount {
		return time.Time{}, errors.Errorf("record buffer length %d, want %d", len(dst), PixelCount)
	}
	if len(line) < len(TimeLayout)+2 {
		return time.Time{}, errors.New("record too short")
	}
	ts, err := time.Parse(TimeLayout, line[:len(TimeLayout)])
	if err != nil {
		return time.Time{}, errors.Wrap(err, "record timestamp")
	}
	if line[len(TimeLayout)] != ' ' {
		return time.Time{}, errors.New("record missing field separator")
	}
	fields := strings.Split(line[len(TimeLayout)+1:], ",")
	if len(fields) != PixelCount {
		return time.Time{}, errors.Errorf("record has %d values, want %d", len(fields), PixelCount)
	}
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "record value %d", i)
		}
		dst[i] = v
	}
	return ts, nil
}

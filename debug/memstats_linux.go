package debug

import (
	"bytes"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// readRSS parses the resident page count from /proc/self/statm.
func readRSS() (uint64, error) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	fields := bytes.Fields(data)
	if len(fields) < 2 {
		return 0, errors.Errorf("unexpected statm contents %q", data)
	}
	pages, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse statm resident field")
	}
	return pages * uint64(os.Getpagesize()), nil
}

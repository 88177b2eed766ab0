//go:build !linux

package debug

import "github.com/pkg/errors"

func readRSS() (uint64, error) {
	return 0, errors.New("rss query unsupported on this platform")
}

//go:build !linux

package acquire

import "github.com/pkg/errors"

// FreeBytes is only implemented on Linux; elsewhere the capacity estimate
// reads zero.
func FreeBytes(path string) (uint64, error) {
	return 0, errors.New("free space query unsupported on this platform")
}

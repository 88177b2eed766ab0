//go:build !linux

package main

import "github.com/maruel/interrupt"

// watchSelf blocks until shutdown; executable watching needs inotify.
func watchSelf() error {
	<-interrupt.Channel
	return nil
}

package main

import (
	"os"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"
)

// watchSelf waits until the running executable is replaced on disk so a
// supervisor can restart the service after a deploy. It also returns on
// shutdown.
func watchSelf() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	fi, err := os.Stat(exe)
	if err != nil {
		return err
	}
	mod0 := fi.ModTime()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(exe); err != nil {
		return err
	}
	for {
		select {
		case <-interrupt.Channel:
			return nil
		case err = <-watcher.Errors:
			return err
		case <-watcher.Events:
			if fi, err = os.Stat(exe); err != nil || !fi.ModTime().Equal(mod0) {
				return err
			}
		}
	}
}

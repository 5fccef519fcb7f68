//go:build windows

package main

import "time"

const resizePollInterval = 250 * time.Millisecond

// watchResize polls for size changes; there is no SIGWINCH on Windows.
func watchResize(onResize func()) (stop func()) {
	ticker := time.NewTicker(resizePollInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				onResize()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

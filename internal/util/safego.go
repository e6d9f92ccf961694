package util

import (
	"runtime/debug"

	"github.com/moltbunker/stakedesk/internal/logging"
)

// SafeGoWithName runs fn on a new goroutine with panic recovery. A panic is
// logged with its stack under the given name instead of crashing the process.
// The returned channel is closed once fn has returned or panicked.
//
// Example:
//
//	done := util.SafeGoWithName("stake", func() {
//	    // goroutine code here
//	})
//	<-done
func SafeGoWithName(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logging.Error("goroutine panic recovered",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
	return done
}

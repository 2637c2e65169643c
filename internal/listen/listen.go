// Package listen provides the release handle returned by every listener registration.
package listen

import "sync"

// Handle releases a listener registration. Release is idempotent and safe on a nil Handle.
type Handle struct {
	once sync.Once
	fn   func()
}

// NewHandle returns a Handle that runs fn on the first Release.
func NewHandle(fn func()) *Handle {
	return &Handle{fn: fn}
}

// Release runs the release function once.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.fn != nil {
			h.fn()
		}
	})
}

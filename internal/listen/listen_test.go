package listen

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestHandle_ReleaseOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := NewHandle(func() { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Release()
		}()
	}
	wg.Wait()
	h.Release()

	if calls.Load() != 1 {
		t.Fatalf("release ran %d times, want 1", calls.Load())
	}
}

func TestHandle_NilSafe(t *testing.T) {
	t.Parallel()

	var h *Handle
	h.Release()
	NewHandle(nil).Release()
}

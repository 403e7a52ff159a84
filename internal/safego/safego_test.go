package safego

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not complete within timeout")
	}
}

func TestGo_RunsFunction(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("test", func() { wg.Done() })
	waitOrFail(t, &wg)
}

func TestGo_RecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("panicky", func() {
		defer wg.Done()
		panic("intentional panic in test")
	})
	waitOrFail(t, &wg)
}

func TestGoTracked_WaitsForAll(t *testing.T) {
	var wg sync.WaitGroup
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		GoTracked(&wg, "count", func() {
			time.Sleep(10 * time.Millisecond)
			n.Add(1)
		})
	}
	waitOrFail(t, &wg)
	if got := n.Load(); got != 5 {
		t.Errorf("ran %d tasks, want 5", got)
	}
}

func TestGoTracked_PanicStillReleasesWaitGroup(t *testing.T) {
	var wg sync.WaitGroup
	GoTracked(&wg, "panicky", func() { panic("boom") })
	waitOrFail(t, &wg)
}

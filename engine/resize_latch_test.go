package engine

import (
	"sync"
	"testing"
)

func TestResizeLatchTakeEmpty(t *testing.T) {
	var l resizeLatch
	if _, _, ok := l.Take(); ok {
		t.Fatal("empty latch reported a pending resize")
	}
}

func TestResizeLatchStoreTake(t *testing.T) {
	var l resizeLatch
	l.Store(1280, 720)

	width, height, ok := l.Take()
	if !ok {
		t.Fatal("stored resize not pending")
	}
	if width != 1280 || height != 720 {
		t.Fatalf("Take = %dx%d, want 1280x720", width, height)
	}
	if _, _, ok := l.Take(); ok {
		t.Fatal("resize consumed twice")
	}
}

func TestResizeLatchCoalescesToLatest(t *testing.T) {
	var l resizeLatch
	l.Store(640, 480)
	l.Store(1920, 1080)

	width, height, ok := l.Take()
	if !ok || width != 1920 || height != 1080 {
		t.Fatalf("Take = %dx%d (%v), want latest 1920x1080", width, height, ok)
	}
}

func TestResizeLatchMinimizeIsPending(t *testing.T) {
	// Minimized windows report 0x0; the latch must still deliver it.
	var l resizeLatch
	l.Store(0, 0)

	width, height, ok := l.Take()
	if !ok {
		t.Fatal("0x0 resize not pending")
	}
	if width != 0 || height != 0 {
		t.Fatalf("Take = %dx%d, want 0x0", width, height)
	}
}

func TestResizeLatchConcurrentStores(t *testing.T) {
	// Callback-thread stores racing a render-goroutine consumer must never
	// tear: every taken value is one that was stored.
	var l resizeLatch
	valid := func(w, h int) bool { return h == w/2 && w%2 == 0 }

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for w := 2; w <= 2000; w += 2 {
			l.Store(w, w/2)
		}
	}()

	for i := 0; i < 10000; i++ {
		if w, h, ok := l.Take(); ok && !valid(w, h) {
			t.Fatalf("torn resize %dx%d", w, h)
		}
	}
	wg.Wait()

	if w, h, ok := l.Take(); ok && !valid(w, h) {
		t.Fatalf("torn final resize %dx%d", w, h)
	}
}

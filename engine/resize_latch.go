package engine

import "sync/atomic"

// resizePending marks a packed value as holding dimensions, so a stored
// 0x0 resize (minimize) is distinguishable from "nothing pending".
const resizePending = uint64(1) << 63

// resizeLatch hands framebuffer resizes from the window callback thread to
// the render goroutine. The callback stores the newest dimensions and the
// render goroutine takes them at frame start, so the view and surface are
// only ever reconfigured by the goroutine that reads them. Intermediate
// resizes are coalesced; only the latest one matters for reconfiguration.
type resizeLatch struct {
	packed atomic.Uint64
}

// Store records a pending resize, replacing any unconsumed one.
//
// Parameters:
//   - width: new framebuffer width in pixels
//   - height: new framebuffer height in pixels
func (l *resizeLatch) Store(width, height int) {
	l.packed.Store(resizePending | (uint64(width)&0x7fffffff)<<31 | uint64(height)&0x7fffffff)
}

// Take returns and clears the pending resize.
//
// Returns:
//   - int: the pending width in pixels
//   - int: the pending height in pixels
//   - bool: false when no resize arrived since the last Take
func (l *resizeLatch) Take() (int, int, bool) {
	v := l.packed.Swap(0)
	if v == 0 {
		return 0, 0, false
	}
	return int(v >> 31 & 0x7fffffff), int(v & 0x7fffffff), true
}

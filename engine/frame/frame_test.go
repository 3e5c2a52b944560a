package frame

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestReservoirIndicesPingPong(t *testing.T) {
	f := NewFrame()
	if f.Number() != 0 {
		t.Fatalf("initial frame number = %d, want 0", f.Number())
	}

	for i := 0; i < 6; i++ {
		cur, prev := f.CurrentReservoirIndex(), f.PreviousReservoirIndex()
		if cur == prev {
			t.Fatalf("frame %d: current and previous set are both %d", f.Number(), cur)
		}
		if cur != int(f.Number()%2) {
			t.Fatalf("frame %d: current set = %d, want %d", f.Number(), cur, f.Number()%2)
		}

		written := cur
		f.Advance()
		// After advancing, the set just written must be the new history.
		if f.PreviousReservoirIndex() != written {
			t.Fatalf("frame %d: history set = %d, want the just written %d",
				f.Number(), f.PreviousReservoirIndex(), written)
		}
	}
}

func TestKernelSumsToOne(t *testing.T) {
	g := NewGpuFrame(0)
	var sum float64
	for _, tap := range g.Kernel {
		sum += float64(tap[2])
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("kernel weights sum to %v, want 1", sum)
	}
}

func TestKernelOffsetsCoverFiveByFive(t *testing.T) {
	g := NewGpuFrame(0)
	seen := make(map[[2]int]bool)
	for _, tap := range g.Kernel {
		x, y := int(tap[0]), int(tap[1])
		if x < -2 || x > 2 || y < -2 || y > 2 {
			t.Fatalf("tap offset (%d, %d) outside the 5x5 window", x, y)
		}
		seen[[2]int{x, y}] = true
	}
	if len(seen) != KernelSize {
		t.Fatalf("kernel has %d distinct offsets, want %d", len(seen), KernelSize)
	}
	// The center tap carries the largest weight of a binomial kernel.
	center := g.Kernel[12]
	if center[0] != 0 || center[1] != 0 {
		t.Fatalf("center tap offset = (%v, %v), want (0, 0)", center[0], center[1])
	}
	want := float32(6.0/16.0) * float32(6.0/16.0)
	if center[2] != want {
		t.Fatalf("center weight = %v, want %v", center[2], want)
	}
}

func TestGpuFrameMarshalLayout(t *testing.T) {
	g := NewGpuFrame(42)
	data := g.Marshal()
	if len(data) != g.Size() {
		t.Fatalf("marshaled size = %d, want %d", len(data), g.Size())
	}
	if got := binary.LittleEndian.Uint32(data[0:4]); got != 42 {
		t.Fatalf("frame number at offset 0 = %d, want 42", got)
	}
	// Kernel entries start after the 16 byte header, stride 16.
	first := math.Float32frombits(binary.LittleEndian.Uint32(data[16+8 : 16+12]))
	want := float32(1.0/16.0) * float32(1.0/16.0)
	if first != want {
		t.Fatalf("first kernel weight = %v, want %v", first, want)
	}
}

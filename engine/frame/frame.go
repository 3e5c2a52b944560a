package frame

// frame is the implementation of the Frame interface.
type frame struct {
	number uint32
}

// Frame tracks the global frame counter that drives temporal reuse.
//
// The counter selects which reservoir texture set is written this frame
// (counter mod 2) and which holds last frame's history, and it indexes into
// the blue-noise bank so the sampling pattern changes every frame.
type Frame interface {
	// Advance increments the frame counter. Call exactly once per rendered frame.
	Advance()

	// Number returns the current frame number.
	//
	// Returns:
	//   - uint32: the frame number
	Number() uint32

	// CurrentReservoirIndex returns which of the two reservoir texture sets is
	// written this frame.
	//
	// Returns:
	//   - int: 0 or 1
	CurrentReservoirIndex() int

	// PreviousReservoirIndex returns which reservoir texture set holds last
	// frame's history.
	//
	// Returns:
	//   - int: 0 or 1
	PreviousReservoirIndex() int

	// Uniform builds the GPU frame uniform for the current frame number.
	//
	// Returns:
	//   - GpuFrame: the frame uniform
	Uniform() GpuFrame
}

var _ Frame = &frame{}

// NewFrame creates a Frame starting at frame number zero.
//
// Returns:
//   - Frame: the frame tracker
func NewFrame() Frame {
	return &frame{}
}

func (f *frame) Advance() {
	f.number++
}

func (f *frame) Number() uint32 {
	return f.number
}

func (f *frame) CurrentReservoirIndex() int {
	return int(f.number % 2)
}

func (f *frame) PreviousReservoirIndex() int {
	return int((f.number + 1) % 2)
}

func (f *frame) Uniform() GpuFrame {
	return NewGpuFrame(f.number)
}

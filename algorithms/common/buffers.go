package common

// SlidingWindow extracts fixed-length, fixed-hop overlapping frames from a
// sample stream delivered in arbitrary-size chunks, retaining exactly the
// tail needed to assemble the next frame across calls.
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	writePos   int
}

// NewSlidingWindow creates a new sliding window over frames of windowSize
// samples advancing by hopSize samples.
func NewSlidingWindow(windowSize, hopSize int) *SlidingWindow {
	return &SlidingWindow{
		buffer:     make([]float64, windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}
}

// AddSamples appends samples to the window and returns every frame that
// became complete as a result, oldest first. Frames are copies; the
// internal buffer keeps advancing underneath them.
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	var frames [][]float64

	for _, sample := range samples {
		sw.buffer[sw.writePos] = sample
		sw.writePos++

		if sw.writePos >= sw.windowSize {
			frame := make([]float64, sw.windowSize)
			copy(frame, sw.buffer)
			frames = append(frames, frame)

			if sw.hopSize < sw.windowSize {
				copy(sw.buffer, sw.buffer[sw.hopSize:])
				sw.writePos = sw.windowSize - sw.hopSize
			} else {
				sw.writePos = 0
			}
		}
	}

	return frames
}

// Reset clears the sliding window.
func (sw *SlidingWindow) Reset() {
	sw.writePos = 0
	for i := range sw.buffer {
		sw.buffer[i] = 0.0
	}
}

// GetWindowSize returns the window size.
func (sw *SlidingWindow) GetWindowSize() int {
	return sw.windowSize
}

// GetHopSize returns the hop size.
func (sw *SlidingWindow) GetHopSize() int {
	return sw.hopSize
}

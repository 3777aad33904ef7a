package facedetect

import (
	"fmt"
	"time"
)

// Channels is the number of interleaved bytes per pixel the detector reads
// (B, G, R).
const Channels = 3

// Header correlates an output event with the frame it came from.
// It is passed through unchanged.
type Header struct {
	Seq     uint32    `json:"seq"`
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// Frame is a BGR8 image in row-major order with an explicit row stride.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
	Stride int // bytes per row, at least Width*Channels
	Header Header
}

// Context returns the frame metadata carried through to the output event.
func (f Frame) Context() FrameContext {
	return FrameContext{
		Width:  f.Width,
		Height: f.Height,
		Stride: f.Stride,
		Header: f.Header,
	}
}

// Validate checks that the geometry describes the pixel buffer.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Stride < f.Width*Channels {
		return fmt.Errorf("%w: stride %d below row width %d", ErrInvalidFrame, f.Stride, f.Width*Channels)
	}
	need := (f.Height-1)*f.Stride + f.Width*Channels
	if len(f.Pixels) < need {
		return fmt.Errorf("%w: %d pixel bytes, need %d", ErrInvalidFrame, len(f.Pixels), need)
	}
	return nil
}

// FrameContext is the per-frame metadata attached to a Faces event.
type FrameContext struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Stride int    `json:"stride"`
	Header Header `json:"header"`
}

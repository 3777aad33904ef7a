package facedetect

import (
	"fmt"
	"sync"
)

// ScratchBuffer is the fixed-capacity memory region handed to the detector on
// every frame. It is allocated once, reused for every frame and never resized.
type ScratchBuffer struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

// AcquireBuffer allocates a scratch buffer of BufferSize bytes.
func AcquireBuffer() (*ScratchBuffer, error) {
	return NewScratchBuffer(BufferSize)
}

// NewScratchBuffer allocates a scratch buffer of size bytes.
// The detector's contract is fixed-capacity, so any size other than
// BufferSize is rejected.
func NewScratchBuffer(size int) (*ScratchBuffer, error) {
	if size <= 0 || size != BufferSize {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrInvalidBufferSize, size, BufferSize)
	}
	return &ScratchBuffer{data: make([]byte, size)}, nil
}

// Bytes returns the underlying region, or nil once released.
func (b *ScratchBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// Len returns the buffer capacity in bytes, or 0 once released.
func (b *ScratchBuffer) Len() int {
	return len(b.Bytes())
}

// Release returns the memory. Only the first call succeeds.
func (b *ScratchBuffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrBufferReleased
	}
	b.released = true
	b.data = nil
	return nil
}

package source

import (
	"sync"

	"github.com/teslashibe/go-facenode/pkg/facedetect"
)

// encoded is a received image not yet converted to a frame.
type encoded struct {
	data   []byte
	header facedetect.Header
}

// pending is a bounded FIFO that evicts its oldest entry when full.
type pending struct {
	mu     sync.Mutex
	items  []encoded
	depth  int
	notify chan struct{}
}

func newPending(depth int) *pending {
	return &pending{
		items:  make([]encoded, 0, depth),
		depth:  depth,
		notify: make(chan struct{}, 1),
	}
}

// push appends e and reports whether an older entry was dropped.
func (p *pending) push(e encoded) (dropped bool) {
	p.mu.Lock()
	if len(p.items) == p.depth {
		copy(p.items, p.items[1:])
		p.items = p.items[:len(p.items)-1]
		dropped = true
	}
	p.items = append(p.items, e)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return dropped
}

// pop removes the oldest entry.
func (p *pending) pop() (encoded, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return encoded{}, false
	}
	e := p.items[0]
	copy(p.items, p.items[1:])
	p.items[len(p.items)-1] = encoded{}
	p.items = p.items[:len(p.items)-1]
	return e, true
}

func (p *pending) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

package manifest

import "sync"

// Publisher hands out the current manifest snapshot and swaps in patched ones
// atomically. A reader always sees either the old snapshot or the new one,
// never a half-applied patch.
type Publisher struct {
	mu      sync.RWMutex
	current *Manifest
	onSwap  func(previous, next *Manifest)
}

// NewPublisher builds a publisher. onSwap, if non-nil, runs under the write
// lock after every swap; the cache uses it to move its manifest pins.
func NewPublisher(onSwap func(previous, next *Manifest)) *Publisher {
	return &Publisher{onSwap: onSwap}
}

// Publish installs the next snapshot and returns the one it replaced.
func (p *Publisher) Publish(next *Manifest) *Manifest {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.current
	p.current = next
	if p.onSwap != nil {
		p.onSwap(previous, next)
	}
	return previous
}

// Current returns the latest published snapshot, or nil before first publish.
func (p *Publisher) Current() *Manifest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

package autofix

import (
	"context"
	"sync"
)

// Publisher pushes a remediated HTML document back to wherever the site
// is served from. The default implementation just holds documents in
// memory; a CMS or object-store publisher can substitute.
type Publisher interface {
	Publish(ctx context.Context, pageURL, html string) error
}

// MemoryPublisher collects published documents in memory.
type MemoryPublisher struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewMemoryPublisher constructs an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{docs: make(map[string]string)}
}

// Publish stores the document under its URL, replacing any prior version.
func (p *MemoryPublisher) Publish(_ context.Context, pageURL, html string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[pageURL] = html
	return nil
}

// Get returns the last published document for a URL.
func (p *MemoryPublisher) Get(pageURL string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	html, ok := p.docs[pageURL]
	return html, ok
}

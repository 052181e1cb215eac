package events

import (
	"sync"
	"time"

	"github.com/vadiminshakov/folio/internal/domain"
)

// PortfolioUpdate is published whenever a refresh cycle completes.
type PortfolioUpdate struct {
	Timestamp   time.Time         `json:"ts"`
	Status      domain.Status     `json:"status"`
	Portfolio   *domain.Portfolio `json:"portfolio,omitempty"`
	Allocations []float64         `json:"allocations,omitempty"`
	TopPrices   domain.PriceMap   `json:"top_prices"`
}

// PortfolioBroadcaster fans out updates to all subscribers via buffered channels.
type PortfolioBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan PortfolioUpdate]struct{}
	buffer int
}

// NewPortfolioBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewPortfolioBroadcaster(buffer int) *PortfolioBroadcaster {
	if buffer < 1 {
		buffer = 16
	}
	return &PortfolioBroadcaster{
		subs:   make(map[chan PortfolioUpdate]struct{}),
		buffer: buffer,
	}
}

// Publish sends the update to all subscribers, dropping it for slow readers.
func (b *PortfolioBroadcaster) Publish(u PortfolioUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives updates until Unsubscribe is called.
func (b *PortfolioBroadcaster) Subscribe() chan PortfolioUpdate {
	ch := make(chan PortfolioUpdate, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *PortfolioBroadcaster) Unsubscribe(ch chan PortfolioUpdate) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of active subscribers.
func (b *PortfolioBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

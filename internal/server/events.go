package server

import "sync"

// Hub fans crawl progress events out to subscribed clients. Notify is
// fire-and-forget: a client that cannot keep up drops events rather
// than blocking the crawl workers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan string]bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan string]bool)}
}

// Notify implements crawler.Notifier.
func (h *Hub) Notify(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- message:
		default:
		}
	}
}

// Subscribe registers a buffered event channel. The caller must
// Unsubscribe when done.
func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.subs[ch] = true
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

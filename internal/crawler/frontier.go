package crawler

import (
	"sync"
)

// Item is one unit of frontier work: a URL and the id of the page
// whose link discovered it (nil for the seed).
type Item struct {
	URL      string
	ParentID *int64
}

// Frontier is the concurrency-safe work queue shared by the crawl
// workers. It doubles as the claimed set: a URL is claimed atomically
// when it is enqueued, so at most one worker ever fetches it and a
// failed URL is never retried within the run.
//
// The frontier closes itself once the queue is empty and every
// dequeued item has been marked done, which is the termination
// barrier: workers blocked in Next are woken and told to exit only
// when no peer can still enqueue new work.
type Frontier struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []Item
	claimed     map[string]bool
	outstanding int
	closed      bool
}

// NewFrontier builds a frontier whose claimed set is pre-seeded with
// urls already present in the store, so a second crawl run skips them.
func NewFrontier(indexedURLs []string) *Frontier {
	f := &Frontier{claimed: make(map[string]bool, len(indexedURLs))}
	f.cond = sync.NewCond(&f.mu)
	for _, url := range indexedURLs {
		f.claimed[url] = true
	}
	return f
}

// Enqueue claims the URL and appends it to the queue. Returns false
// if the URL was already claimed or the frontier has closed.
func (f *Frontier) Enqueue(item Item) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.claimed[item.URL] {
		return false
	}
	f.claimed[item.URL] = true
	f.queue = append(f.queue, item)
	f.outstanding++
	f.cond.Signal()
	return true
}

// Next blocks until an item is available or the frontier closes.
// ok=false is the exit signal for workers.
func (f *Frontier) Next() (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && !f.closed {
		f.cond.Wait()
	}
	if len(f.queue) == 0 {
		return Item{}, false
	}

	item := f.queue[0]
	f.queue = f.queue[1:]
	return item, true
}

// Done marks one dequeued item as fully processed. Must be called
// exactly once per successful Next, after any child links have been
// enqueued. When the last outstanding item finishes the frontier
// closes and all workers are released.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outstanding--
	if f.outstanding == 0 && len(f.queue) == 0 {
		f.closed = true
		f.cond.Broadcast()
	}
}

// Close force-closes the frontier, releasing all blocked workers.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Size returns the number of queued, not-yet-dequeued items.
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Claimed reports whether the URL has been claimed this run (or was
// indexed by a prior run).
func (f *Frontier) Claimed(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimed[url]
}

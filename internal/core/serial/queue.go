package serial

import "sync"

// Queue provides per-key mutual exclusion with FIFO ordering.
// Operations submitted for the same key run strictly one at a time in
// submission order; operations for different keys run concurrently.
//
// A queue is an ordinary injectable value, not package state, so every
// test (and every independent reconciler) can own its own instance.
type Queue struct {
	mu    sync.Mutex
	tails map[string]*waiter
}

type waiter struct {
	done chan struct{}
}

func New() *Queue {
	return &Queue{tails: make(map[string]*waiter)}
}

// Do runs op after every previously submitted operation for key has
// finished, then returns op's error to this caller only. A failing
// (or panicking) op never prevents later operations on the same key
// from running. Do blocks until op completes.
func (q *Queue) Do(key string, op func() error) error {
	w := &waiter{done: make(chan struct{})}

	q.mu.Lock()
	prev := q.tails[key]
	q.tails[key] = w
	q.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	defer func() {
		close(w.done)
		q.mu.Lock()
		// Clear the entry once nothing newer is chained behind us, so
		// the map does not grow with every key ever seen.
		if q.tails[key] == w {
			delete(q.tails, key)
		}
		q.mu.Unlock()
	}()

	return op()
}

// Pending returns the number of keys with in-flight or queued work.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}

// Package pipeline runs chunk generation and collider building on worker
// goroutines. Workers talk to the orchestrator only through queues.
package pipeline

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO with an urgent lane that is always served
// first. It is safe for concurrent use.
type Queue[T any] struct {
	mu     sync.Mutex
	urgent []T
	normal []T
	signal chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.normal = append(q.normal, v)
	q.mu.Unlock()
	q.notify()
}

func (q *Queue[T]) PushUrgent(v T) {
	q.mu.Lock()
	q.urgent = append(q.urgent, v)
	q.mu.Unlock()
	q.notify()
}

// PushFront returns v to the head of its lane, ahead of everything queued
// there. Workers use it to hand back an item they popped but did not run.
func (q *Queue[T]) PushFront(v T, urgent bool) {
	q.mu.Lock()
	if urgent {
		q.urgent = append([]T{v}, q.urgent...)
	} else {
		q.normal = append([]T{v}, q.normal...)
	}
	q.mu.Unlock()
	q.notify()
}

func (q *Queue[T]) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryPop removes the next item without blocking. urgent reports which lane
// it came from.
func (q *Queue[T]) TryPop() (v T, urgent, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case len(q.urgent) > 0:
		v, q.urgent = pop(q.urgent)
		urgent, ok = true, true
	case len(q.normal) > 0:
		v, q.normal = pop(q.normal)
		ok = true
	}
	if len(q.urgent)+len(q.normal) > 0 {
		q.notify()
	}
	return v, urgent, ok
}

// Wait blocks until an item is available, timeout elapses or ctx is done.
func (q *Queue[T]) Wait(ctx context.Context, timeout time.Duration) (v T, urgent, ok bool) {
	if v, urgent, ok = q.TryPop(); ok {
		return v, urgent, ok
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return v, false, false
		case <-timer.C:
			return q.TryPop()
		case <-q.signal:
			if v, urgent, ok = q.TryPop(); ok {
				return v, urgent, ok
			}
		}
	}
}

// Drain removes and returns every queued item, urgent lane first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, len(q.urgent)+len(q.normal))
	out = append(out, q.urgent...)
	out = append(out, q.normal...)
	q.urgent, q.normal = nil, nil
	return out
}

// Retain drops queued items for which keep returns false and returns them.
func (q *Queue[T]) Retain(keep func(T) bool) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	var dropped []T
	q.urgent, dropped = filter(q.urgent, keep, dropped)
	q.normal, dropped = filter(q.normal, keep, dropped)
	return dropped
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.urgent) + len(q.normal)
}

// UrgentLen returns the number of items in the urgent lane.
func (q *Queue[T]) UrgentLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.urgent)
}

func pop[T any](s []T) (T, []T) {
	var zero T
	v := s[0]
	s[0] = zero
	s = s[1:]
	if len(s) == 0 {
		s = nil
	}
	return v, s
}

func filter[T any](s []T, keep func(T) bool, dropped []T) ([]T, []T) {
	kept := s[:0]
	for _, v := range s {
		if keep(v) {
			kept = append(kept, v)
		} else {
			dropped = append(dropped, v)
		}
	}
	var zero T
	for i := len(kept); i < len(s); i++ {
		s[i] = zero
	}
	return kept, dropped
}

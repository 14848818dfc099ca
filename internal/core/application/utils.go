package application

import (
	"sync"
	"time"
)

const maxBackoff = 60 * time.Second

// backoffDelay returns base * 2^retry, capped at maxBackoff.
func backoffDelay(base time.Duration, retry int) time.Duration {
	if retry < 0 {
		return base
	}
	if retry > 30 {
		return maxBackoff
	}
	delay := base * time.Duration(1<<retry)
	if delay > maxBackoff || delay < 0 {
		return maxBackoff
	}
	return delay
}

// broadcaster fans values out to subscribers without blocking on slow ones.
// A slow subscriber only misses intermediate values, never the latest.
type broadcaster[T any] struct {
	lock   *sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
	closed bool
}

func newBroadcaster[T any](buffer int) *broadcaster[T] {
	return &broadcaster[T]{
		lock:   &sync.RWMutex{},
		subs:   make(map[chan T]struct{}),
		buffer: buffer,
	}
}

func (b *broadcaster[T]) subscribe() chan T {
	ch := make(chan T, b.buffer)

	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *broadcaster[T]) unsubscribe(ch chan T) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *broadcaster[T]) publish(v T) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Slow subscriber, replace its pending value with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// close ends every subscription. Later subscribers get a closed channel.
func (b *broadcaster[T]) close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

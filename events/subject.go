// Package events provides the change notification channel between the canvas
// engine and its observers.
package events

import (
	"slices"
	"sync"
)

// Subject broadcasts values to subscribers synchronously, in subscription
// order. A late subscriber immediately receives the last published value.
//
// Publishing from inside a handler does not recurse: the nested value is
// queued and delivered after the current round, within the same call.
type Subject[T any] struct {
	mu       sync.Mutex
	handlers []subscription[T]
	nextID   uint64
	last     T
	hasLast  bool
	sending  bool
	pending  []T
	closed   bool
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewSubject returns an empty subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers fn and returns a function that removes it. If a value
// has been published, fn is called with it before Subscribe returns.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, subscription[T]{id: id, fn: fn})
	last, replay := s.last, s.hasLast
	s.mu.Unlock()

	if replay {
		fn(last)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.handlers = slices.DeleteFunc(s.handlers, func(h subscription[T]) bool { return h.id == id })
		})
	}
}

// Publish stores v as the last value and delivers it to every subscriber.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.last, s.hasLast = v, true
	if s.sending {
		s.pending = append(s.pending, v)
		s.mu.Unlock()
		return
	}
	s.sending = true
	for {
		handlers := slices.Clone(s.handlers)
		s.mu.Unlock()
		for _, h := range handlers {
			h.fn(v)
		}
		s.mu.Lock()
		if len(s.pending) == 0 || s.closed {
			break
		}
		v = s.pending[0]
		s.pending = s.pending[1:]
	}
	s.sending = false
	s.pending = nil
	s.mu.Unlock()
}

// Last returns the most recently published value.
func (s *Subject[T]) Last() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Len returns the number of subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Close drops every subscriber; later publishes are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = nil
	s.pending = nil
}

package caches

import (
	"context"
	"sync"
)

// Lazy loads a value on first use. A failed load is not kept: the next Get tries again.
type Lazy[T any] struct {
	mutex  sync.Mutex
	loaded bool
	loader func(ctx context.Context) (T, error)
	val    T
}

func NewLazy[T any](loader func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{
		loader: loader,
	}
}

// Get loads the value with ctx if it was not loaded yet.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.loaded {
		return l.val, nil
	}

	val, err := l.loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.val = val
	l.loaded = true
	return l.val, nil
}

func (l *Lazy[T]) Loaded() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.loaded
}

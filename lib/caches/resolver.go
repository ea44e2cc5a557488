package caches

import (
	"sync"

	"github.com/pkg/errors"
)

// Resolver is an in-memory cache for values that are expensive to get, like the output of
// external processes. Values are computed by functions given by the caller, and each key is
// computed at most once during the life of the Resolver.
//
// A failed computation caches nothing: the keys stay unresolved and the error goes back to
// every caller waiting on them.
type Resolver[K comparable, V any] struct {
	mutex   sync.Mutex
	entries map[K]*entry[V]
}

type entry[V any] struct {
	done  chan struct{}
	val   V
	found bool
	err   error
}

func newEntry[V any]() *entry[V] {
	return &entry[V]{
		done: make(chan struct{}),
	}
}

func (e *entry[V]) ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

var errAborted = errors.New("resolution aborted")

// ErrAbsent is returned by Resolve for a key that a batched computation left out of its result.
var ErrAbsent = errors.New("key is absent")

func NewResolver[K comparable, V any]() *Resolver[K, V] {
	return &Resolver[K, V]{
		entries: make(map[K]*entry[V]),
	}
}

// Get returns the cached value for key. It never computes and never waits for a computation
// in progress.
func (r *Resolver[K, V]) Get(key K) (V, bool) {
	r.mutex.Lock()
	e, ok := r.entries[key]
	r.mutex.Unlock()

	if !ok || !e.ready() || e.err != nil || !e.found {
		var zero V
		return zero, false
	}

	return e.val, true
}

// Len returns the number of resolved keys, absent ones included.
func (r *Resolver[K, V]) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	result := 0
	for _, e := range r.entries {
		if e.ready() && e.err == nil {
			result++
		}
	}
	return result
}

// Resolve returns the cached value for key, calling compute when it is not cached yet. A key
// remembered as absent returns ErrAbsent.
func (r *Resolver[K, V]) Resolve(key K, compute func(K) (V, error)) (V, error) {
	r.mutex.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = newEntry[V]()
		r.entries[key] = e
	}
	r.mutex.Unlock()

	if !ok {
		r.fill([]K{key}, map[K]*entry[V]{key: e}, func(keys []K) (map[K]V, error) {
			v, err := compute(keys[0])
			if err != nil {
				return nil, err
			}
			return map[K]V{keys[0]: v}, nil
		})
	}

	<-e.done

	if e.err != nil {
		var zero V
		return zero, e.err
	}
	if !e.found {
		var zero V
		return zero, ErrAbsent
	}
	return e.val, nil
}

// ResolveBatch resolves every key in keys, calling compute once for each key that is not
// cached yet. Absent keys are left out of the result.
func (r *Resolver[K, V]) ResolveBatch(keys []K, compute func(K) (V, error)) (map[K]V, error) {
	result := make(map[K]V, len(keys))

	for _, key := range keys {
		v, err := r.Resolve(key, compute)
		if errors.Is(err, ErrAbsent) {
			continue
		}
		if err != nil {
			return nil, err
		}

		result[key] = v
	}

	return result, nil
}

// ResolveBatched resolves every key in keys, calling compute a single time with all the keys
// that are not cached yet. Keys requested from compute and missing from its result are
// remembered as absent: they are not requested again and are left out of the result.
func (r *Resolver[K, V]) ResolveBatched(keys []K, compute func([]K) (map[K]V, error)) (map[K]V, error) {
	entries := make(map[K]*entry[V], len(keys))
	var missing []K

	r.mutex.Lock()
	for _, key := range keys {
		if _, seen := entries[key]; seen {
			continue
		}

		e, ok := r.entries[key]
		if !ok {
			e = newEntry[V]()
			r.entries[key] = e
			missing = append(missing, key)
		}

		entries[key] = e
	}
	r.mutex.Unlock()

	if len(missing) > 0 {
		r.fill(missing, entries, compute)
	}

	result := make(map[K]V, len(entries))
	for key, e := range entries {
		<-e.done

		if e.err != nil {
			return nil, e.err
		}

		if e.found {
			result[key] = e.val
		}
	}

	return result, nil
}

// fill computes the missing keys, whose entries were created by the caller, and publishes the
// result. The entries are always completed, even if compute panics.
func (r *Resolver[K, V]) fill(missing []K, entries map[K]*entry[V], compute func([]K) (map[K]V, error)) {
	completed := false
	defer func() {
		if !completed {
			r.complete(missing, entries, nil, errAborted)
		}
	}()

	values, err := compute(missing)

	completed = true
	r.complete(missing, entries, values, err)
}

func (r *Resolver[K, V]) complete(missing []K, entries map[K]*entry[V], values map[K]V, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, key := range missing {
		e := entries[key]

		if err != nil {
			e.err = err
			if r.entries[key] == e {
				delete(r.entries, key)
			}

		} else {
			e.val, e.found = values[key]
		}

		close(e.done)
	}
}

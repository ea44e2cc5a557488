package caches

import (
	"github.com/hashicorp/go-set/v2"
)

// FlatResolver is a Resolver for keys whose values are collections. Its results are the union
// of the collections of all requested keys.
type FlatResolver[K comparable, V comparable] struct {
	resolver *Resolver[K, []V]
}

func NewFlatResolver[K comparable, V comparable]() *FlatResolver[K, V] {
	return &FlatResolver[K, V]{
		resolver: NewResolver[K, []V](),
	}
}

func (r *FlatResolver[K, V]) Resolver() *Resolver[K, []V] {
	return r.resolver
}

// ResolveFlat resolves keys with Resolver.ResolveBatch and returns the union of their values.
func (r *FlatResolver[K, V]) ResolveFlat(keys []K, compute func(K) ([]V, error)) ([]V, error) {
	resolved, err := r.resolver.ResolveBatch(keys, compute)
	if err != nil {
		return nil, err
	}

	return flatten(resolved), nil
}

// ResolveBatchedFlat resolves keys with Resolver.ResolveBatched and returns the union of their
// values.
func (r *FlatResolver[K, V]) ResolveBatchedFlat(keys []K, compute func([]K) (map[K][]V, error)) ([]V, error) {
	resolved, err := r.resolver.ResolveBatched(keys, compute)
	if err != nil {
		return nil, err
	}

	return flatten(resolved), nil
}

func flatten[K comparable, V comparable](resolved map[K][]V) []V {
	size := 0
	for _, vs := range resolved {
		size += len(vs)
	}

	result := set.New[V](size)
	for _, vs := range resolved {
		for _, v := range vs {
			result.Insert(v)
		}
	}

	return result.Slice()
}

package cm

import "sync"

// ConcurrentMap wraps around sync.Map
type ConcurrentMap[K comparable, V any] struct {
	m sync.Map
}

// Set adds or updates a value in the map for a given key.
func (cm *ConcurrentMap[K, V]) Set(key K, value V) {
	cm.m.Store(key, value)
}

// Get retrieves a value from the map for a given key.
func (cm *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	var zeroValue V
	if value, ok := cm.m.Load(key); ok {
		return value.(V), true
	}
	return zeroValue, false
}

// GetOrSet stores value unless key is present, and returns whatever the map holds
// afterwards. loaded reports whether the value was already there.
func (cm *ConcurrentMap[K, V]) GetOrSet(key K, value V) (actual V, loaded bool) {
	v, loaded := cm.m.LoadOrStore(key, value)
	return v.(V), loaded
}

func (cm *ConcurrentMap[K, V]) Delete(key K) {
	cm.m.Delete(key)
}

// Range calls f for every entry until f returns false.
func (cm *ConcurrentMap[K, V]) Range(f func(key K, value V) bool) {
	cm.m.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}

func (cm *ConcurrentMap[K, V]) Len() int {
	n := 0
	cm.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

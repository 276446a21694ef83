package cm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentMap(t *testing.T) {
	var m ConcurrentMap[int, string]

	_, ok := m.Get(1)
	assert.False(t, ok)

	m.Set(1, "a")
	v, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	actual, loaded := m.GetOrSet(1, "b")
	assert.True(t, loaded)
	assert.Equal(t, "a", actual)

	actual, loaded = m.GetOrSet(2, "b")
	assert.False(t, loaded)
	assert.Equal(t, "b", actual)
	assert.Equal(t, 2, m.Len())

	m.Delete(1)
	assert.Equal(t, 1, m.Len())
}

func TestConcurrentMapGetOrSetRace(t *testing.T) {
	var m ConcurrentMap[int, int]
	var wg sync.WaitGroup
	winners := make(chan int, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, loaded := m.GetOrSet(7, i); !loaded {
				winners <- i
			}
		}(i)
	}
	wg.Wait()
	close(winners)
	assert.Len(t, winners, 1)
}

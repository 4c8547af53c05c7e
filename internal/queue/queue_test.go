package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID   int
	Name string
}

func ids(items []testItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	assert.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushAndDrain(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, []int{1, 2, 3}, ids(q.Drain()))
	assert.True(t, q.Empty())
	assert.Empty(t, q.Drain())
}

func TestQueue_Requeue(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1}, testItem{ID: 2})

	failed := q.Drain()
	q.Push(testItem{ID: 3})
	q.Requeue(failed)

	assert.Equal(t, []int{1, 2, 3}, ids(q.Drain()))

	q.Requeue(nil)
	assert.True(t, q.Empty())
}

func TestQueue_Bounded(t *testing.T) {
	q := NewBounded[testItem](3)

	q.Push(testItem{ID: 1}, testItem{ID: 2}, testItem{ID: 3}, testItem{ID: 4})
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(1), q.Dropped())

	q.Requeue([]testItem{{ID: 0}})
	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, []int{2, 3, 4}, ids(q.Drain()))
}

func TestQueue_DrainDoesNotAlias(t *testing.T) {
	q := New[testItem]()
	q.Push(testItem{ID: 1})
	drained := q.Drain()

	q.Push(testItem{ID: 2})
	assert.Equal(t, 1, drained[0].ID)
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[testItem]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(testItem{ID: id})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}

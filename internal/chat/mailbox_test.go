package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFO(t *testing.T) {
	m := NewMailbox()
	for i := 0; i < 100; i++ {
		require.True(t, m.Enqueue(NewMessage(TagDelivery, fmt.Sprint(i))))
	}
	assert.Equal(t, 100, m.Len())

	for i := 0; i < 100; i++ {
		msg, ok := m.Dequeue(context.Background(), time.Second)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), msg.Data)
	}
	assert.Equal(t, 0, m.Len())
}

func TestMailbox_DequeueTimesOut(t *testing.T) {
	m := NewMailbox()

	const wait = 50 * time.Millisecond
	start := time.Now()
	_, ok := m.Dequeue(context.Background(), wait)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, wait)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestMailbox_DequeueWakesOnEnqueue(t *testing.T) {
	m := NewMailbox()

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Enqueue(NewMessage(TagDelivery, "late"))
	}()

	msg, ok := m.Dequeue(context.Background(), 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, "late", msg.Data)
}

func TestMailbox_DequeueStopsOnCancel(t *testing.T) {
	m := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok := m.Dequeue(ctx, 10*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMailbox_ManyProducersPreservePerProducerOrder(t *testing.T) {
	m := NewMailbox()
	const producers, each = 8, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				m.Enqueue(NewMessage(TagDelivery, fmt.Sprintf("%d:%d", p, i)))
			}
		}(p)
	}

	next := make([]int, producers)
	for n := 0; n < producers*each; n++ {
		msg, ok := m.Dequeue(context.Background(), 5*time.Second)
		require.True(t, ok, "message %d", n)
		var p, i int
		_, err := fmt.Sscanf(msg.Data, "%d:%d", &p, &i)
		require.NoError(t, err)
		require.Equal(t, next[p], i, "producer %d out of order", p)
		next[p]++
	}
	wg.Wait()
	assert.Equal(t, 0, m.Len())
}

func TestMailbox_CloseDropsPending(t *testing.T) {
	m := NewMailbox()
	m.Enqueue(NewMessage(TagDelivery, "a"))
	m.Enqueue(NewMessage(TagDelivery, "b"))

	assert.Equal(t, 2, m.Close())
	assert.False(t, m.Enqueue(NewMessage(TagDelivery, "c")))

	start := time.Now()
	_, ok := m.Dequeue(context.Background(), 10*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

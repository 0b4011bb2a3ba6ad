package device

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/calvinmclean/pilldispenser"
)

func TestQueue(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.Push(pilldispenser.ButtonOnePressed))
	assert.True(t, q.Push(pilldispenser.PillDropped))
	assert.False(t, q.Push(pilldispenser.ButtonTwoPressed), "full queue drops the event")
	assert.Equal(t, 2, q.Len())

	events := q.Drain(nil)
	assert.Equal(t, []pilldispenser.Event{pilldispenser.ButtonOnePressed, pilldispenser.PillDropped}, events)
	assert.Empty(t, q.Drain(nil))
	assert.Equal(t, 0, q.Len())
}

func TestQueueDefaultSize(t *testing.T) {
	q := NewQueue(0)
	for range DefaultQueueSize {
		assert.True(t, q.Push(pilldispenser.PillDropped))
	}
	assert.False(t, q.Push(pilldispenser.PillDropped))
}

func TestQueueConcurrentPush(t *testing.T) {
	q := NewQueue(64)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 16 {
				q.Push(pilldispenser.PillDropped)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(nil), 64)
}

func TestDebouncer(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Debouncer{Window: 50 * time.Millisecond}

	assert.True(t, d.Accept(start))
	assert.False(t, d.Accept(start.Add(10*time.Millisecond)))
	assert.False(t, d.Accept(start.Add(49*time.Millisecond)))
	assert.True(t, d.Accept(start.Add(50*time.Millisecond)))
	assert.False(t, d.Accept(start.Add(60*time.Millisecond)))
}

func TestInputsEdge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue(DefaultQueueSize)
	in := NewInputs(q, 50*time.Millisecond, func() time.Time { return now })

	// contact bounce on button one
	assert.True(t, in.Edge(pilldispenser.ButtonOnePressed))
	assert.False(t, in.Edge(pilldispenser.ButtonOnePressed))

	// each button has its own window
	assert.True(t, in.Edge(pilldispenser.ButtonTwoPressed))

	// piezo pulses are never debounced
	assert.True(t, in.Edge(pilldispenser.PillDropped))
	assert.True(t, in.Edge(pilldispenser.PillDropped))

	now = now.Add(100 * time.Millisecond)
	assert.True(t, in.Edge(pilldispenser.ButtonOnePressed))

	assert.Equal(t, []pilldispenser.Event{
		pilldispenser.ButtonOnePressed,
		pilldispenser.ButtonTwoPressed,
		pilldispenser.PillDropped,
		pilldispenser.PillDropped,
		pilldispenser.ButtonOnePressed,
	}, q.Drain(nil))
}

package device

import (
	"time"

	"github.com/calvinmclean/pilldispenser"
)

// DefaultQueueSize is the capacity of the event queue
const DefaultQueueSize = 16

// Queue is a bounded FIFO between interrupt handlers and the main loop. Push never
// blocks and drops the event when full; Drain never blocks either.
type Queue struct {
	ch chan pilldispenser.Event
}

// NewQueue creates a Queue holding at most size events
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan pilldispenser.Event, size)}
}

// Push enqueues ev and reports whether it was accepted
func (q *Queue) Push(ev pilldispenser.Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// Drain appends every queued event to dst in arrival order
func (q *Queue) Drain(dst []pilldispenser.Event) []pilldispenser.Event {
	for {
		select {
		case ev := <-q.ch:
			dst = append(dst, ev)
		default:
			return dst
		}
	}
}

// Len is the number of queued events
func (q *Queue) Len() int {
	return len(q.ch)
}

// Debouncer accepts an edge only when the previous accepted edge is older than Window
type Debouncer struct {
	Window time.Duration

	last     time.Time
	accepted bool
}

// Accept reports whether an edge at now should be kept
func (d *Debouncer) Accept(now time.Time) bool {
	if d.accepted && now.Sub(d.last) < d.Window {
		return false
	}
	d.last = now
	d.accepted = true
	return true
}

// Inputs is the interrupt boundary: edges are debounced per input and then queued.
// Each input's edges must come from one interrupt handler.
type Inputs struct {
	queue     *Queue
	buttonOne Debouncer
	buttonTwo Debouncer
	now       func() time.Time
}

// NewInputs creates Inputs feeding queue. now defaults to time.Now
func NewInputs(queue *Queue, window time.Duration, now func() time.Time) *Inputs {
	if now == nil {
		now = time.Now
	}
	return &Inputs{
		queue:     queue,
		buttonOne: Debouncer{Window: window},
		buttonTwo: Debouncer{Window: window},
		now:       now,
	}
}

// Edge handles one interrupt. Button edges are debounced, pill drops are queued as is.
// It reports whether the event reached the queue.
func (in *Inputs) Edge(ev pilldispenser.Event) bool {
	switch ev {
	case pilldispenser.ButtonOnePressed:
		if !in.buttonOne.Accept(in.now()) {
			return false
		}
	case pilldispenser.ButtonTwoPressed:
		if !in.buttonTwo.Accept(in.now()) {
			return false
		}
	}
	return in.queue.Push(ev)
}

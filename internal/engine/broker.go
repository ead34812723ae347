package engine

import (
	"sync"

	"github.com/seantiz/forge/internal/model"
)

// eventBuffer is the channel buffer per subscriber. A job publishes at most
// two transitions; a full buffer drops the event instead of blocking the
// worker.
const eventBuffer = 8

// EventBroker fans job transitions out to subscribers of that job id.
//
// A job's stream ends when its worker calls Finish, or when the pool seals
// the broker after its workers have exited. Subscribing to a finished job,
// or to any job once sealed, yields a closed channel.
type EventBroker struct {
	mu       sync.Mutex
	subs     map[int]map[chan model.Job]struct{}
	finished map[int]struct{}
	sealed   bool
}

// NewEventBroker creates an empty broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		subs:     make(map[int]map[chan model.Job]struct{}),
		finished: make(map[int]struct{}),
	}
}

// Subscribe returns a channel receiving the transitions of job id and a
// function that cancels the subscription.
func (b *EventBroker) Subscribe(id int) (<-chan model.Job, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Job, eventBuffer)
	if _, done := b.finished[id]; done || b.sealed {
		close(ch)
		return ch, func() {}
	}

	set, ok := b.subs[id]
	if !ok {
		set = make(map[chan model.Job]struct{})
		b.subs[id] = set
	}
	set[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[id]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, id)
			}
		}
	}
}

// Publish delivers job to the subscribers of job.ID.
func (b *EventBroker) Publish(job model.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[job.ID] {
		select {
		case ch <- job:
		default:
		}
	}
}

// Finish ends the stream of job id. Later subscribers get a closed channel.
func (b *EventBroker) Finish(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.finished[id] = struct{}{}
	b.endLocked(id)
}

// Seal ends every open stream and refuses new ones. The pool calls it once
// no worker can publish again, so every stream still open belongs to a job
// that was never claimed. It returns how many jobs had open streams.
func (b *EventBroker) Seal() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sealed = true
	n := len(b.subs)
	for id := range b.subs {
		b.endLocked(id)
	}
	return n
}

func (b *EventBroker) endLocked(id int) {
	for ch := range b.subs[id] {
		close(ch)
	}
	delete(b.subs, id)
}

package session

import (
	"sort"
	"sync"
)

type subscriber struct {
	fn func(Snapshot)
	// minSeq is the Seq of the snapshot the subscriber started from; older
	// or equal broadcasts are not delivered.
	minSeq uint64
	// ready is false until Subscribe has handed over the initial snapshot.
	// Broadcasts for a subscriber that is not ready wait in backlog.
	ready   bool
	backlog []Snapshot
}

// observers is a serial dispatcher. Snapshots are queued while the store lock
// is held, so the queue is in transition order; whichever goroutine finds the
// queue idle drains it without holding any store lock.
type observers struct {
	mu       sync.Mutex
	subs     map[int]*subscriber
	nextID   int
	queue    []Snapshot
	draining bool
}

func (o *observers) add(fn func(Snapshot), minSeq uint64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]*subscriber)
	}
	o.nextID++
	o.subs[o.nextID] = &subscriber{fn: fn, minSeq: minSeq}
	return o.nextID
}

func (o *observers) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, id)
}

func (o *observers) enqueue(snap Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(o.queue, snap)
}

// settle delivers whatever queued up for subscriber id while its initial
// snapshot was being handed over, then marks it ready.
func (o *observers) settle(id int) {
	for {
		o.mu.Lock()
		sub, ok := o.subs[id]
		if !ok {
			o.mu.Unlock()
			return
		}
		if len(sub.backlog) == 0 {
			sub.ready = true
			sub.backlog = nil
			o.mu.Unlock()
			return
		}
		next := sub.backlog[0]
		sub.backlog = sub.backlog[1:]
		o.mu.Unlock()
		sub.fn(next)
	}
}

func (o *observers) drain() {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	for len(o.queue) > 0 {
		next := o.queue[0]
		o.queue = o.queue[1:]
		targets := o.targetsLocked(next)
		o.mu.Unlock()
		for _, fn := range targets {
			fn(next)
		}
		o.mu.Lock()
	}
	o.queue = nil
	o.draining = false
	o.mu.Unlock()
}

// targetsLocked returns, in registration order, the ready subscribers that
// have not seen snap yet. Subscribers still settling get snap in their backlog.
func (o *observers) targetsLocked(snap Snapshot) []func(Snapshot) {
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		sub := o.subs[id]
		if snap.Seq <= sub.minSeq {
			continue
		}
		if !sub.ready {
			sub.backlog = append(sub.backlog, snap)
			continue
		}
		fns = append(fns, sub.fn)
	}
	return fns
}

package app

import (
	"runtime/debug"
	"slices"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lu-zhengda/courier/internal/inbox"
)

type listenerEntry struct {
	id       string
	listener Listener
}

type delivery struct {
	target string // empty means every listener
	event  inbox.Event
	fence  chan struct{}
}

// dispatcher owns the listener registry and delivers events in order on a
// single goroutine. Enqueueing never blocks.
type dispatcher struct {
	mu        sync.Mutex
	listeners []listenerEntry
	queue     []delivery
	closed    bool
	wake      chan struct{}
	done      chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) add(l Listener) string {
	id := uuid.NewString()
	d.mu.Lock()
	d.listeners = append(d.listeners, listenerEntry{id: id, listener: l})
	d.mu.Unlock()
	return id
}

// remove unregisters a listener and returns whether it was registered and
// how many listeners remain.
func (d *dispatcher) remove(id string) (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.IndexFunc(d.listeners, func(e listenerEntry) bool { return e.id == id })
	if i < 0 {
		return false, len(d.listeners)
	}
	d.listeners = slices.Delete(d.listeners, i, i+1)
	return true, len(d.listeners)
}

func (d *dispatcher) removeAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.listeners)
	d.listeners = nil
	return n
}

func (d *dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

func (d *dispatcher) broadcast(e inbox.Event) {
	d.enqueue(delivery{event: e})
}

func (d *dispatcher) send(id string, e inbox.Event) {
	d.enqueue(delivery{target: id, event: e})
}

// flush blocks until everything enqueued before the call has been delivered.
func (d *dispatcher) flush() {
	fence := make(chan struct{})
	if !d.enqueue(delivery{fence: fence}) {
		return
	}
	<-fence
}

func (d *dispatcher) enqueue(dl delivery) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, dl)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// close delivers what is already queued and stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		dl := d.queue[0]
		d.queue[0] = delivery{}
		d.queue = d.queue[1:]

		var targets []listenerEntry
		if dl.event != nil {
			for _, e := range d.listeners {
				if dl.target == "" || e.id == dl.target {
					targets = append(targets, e)
				}
			}
		}
		d.mu.Unlock()

		if dl.fence != nil {
			close(dl.fence)
			continue
		}
		for _, e := range targets {
			safeCall(e.listener, dl.event)
		}
	}
}

func safeCall(l Listener, e inbox.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event", e.EventType()).
				WithField("panic", r).
				WithField("stack", string(debug.Stack())).
				Error("listener_panicked")
		}
	}()
	l.OnInboxEvent(e)
}

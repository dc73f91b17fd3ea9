package app

import "github.com/lu-zhengda/courier/internal/inbox"

// Listener receives inbox events on the module's dispatch goroutine.
type Listener interface {
	OnInboxEvent(inbox.Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(inbox.Event)

func (f ListenerFunc) OnInboxEvent(e inbox.Event) { f(e) }

// ChanListener forwards events to C. Delivery blocks until the event is
// received or Done is closed.
type ChanListener struct {
	C    chan<- inbox.Event
	Done <-chan struct{}
}

func (l ChanListener) OnInboxEvent(e inbox.Event) {
	select {
	case l.C <- e:
	case <-l.Done:
	}
}

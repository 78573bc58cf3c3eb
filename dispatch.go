package wamd

import (
	"go.uber.org/zap"
)

// Size of the per-session event queue. The read loop blocks when the
// consumer falls this far behind, applying backpressure to the transport
// rather than dropping events.
const eventQueueSize = 1024

type queuedEvent struct {
	kind    EventKind
	payload *EventPayload
}

// dispatcher delivers translated events to the single registered handler,
// one at a time, in arrival order. Handler failures are logged and the loop
// continues; nothing the handler does can terminate the stream.
type dispatcher struct {
	handler HandleEventFunc
	apply   func(EventKind, *EventPayload)
	logger  *zap.Logger
	ch      chan queuedEvent
	stop    chan struct{}
	done    chan struct{}
}

// newDispatcher starts the delivery loop. apply, when set, runs on the
// dispatch goroutine before the handler, keeping cache mutation on the
// single consumer thread.
func newDispatcher(handler HandleEventFunc, apply func(EventKind, *EventPayload), logger *zap.Logger) *dispatcher {
	d := &dispatcher{
		handler: handler,
		apply:   apply,
		logger:  logger,
		ch:      make(chan queuedEvent, eventQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// push enqueues one event. Unknown events are silently discarded, matching
// the translation layer's "not for the consumer" result.
func (d *dispatcher) push(kind EventKind, payload *EventPayload) {
	if kind == EventUnknown {
		return
	}
	if payload == nil {
		payload = &EventPayload{}
	}
	select {
	case d.ch <- queuedEvent{kind: kind, payload: payload}:
	case <-d.stop:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case evt := <-d.ch:
			d.deliver(evt)
		case <-d.stop:
			return
		}
	}
}

func (d *dispatcher) deliver(evt queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.Stringer("kind", evt.kind),
				zap.Any("panic", r))
		}
	}()
	if d.apply != nil {
		d.apply(evt.kind, evt.payload)
	}
	d.handler(evt.kind, evt.payload)
}

// close stops the delivery loop and waits for the in-flight handler call, if
// any, to return.
func (d *dispatcher) close() {
	close(d.stop)
	<-d.done
}

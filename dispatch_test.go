package wamd

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wamd/types"
	"go.uber.org/zap"
)

func TestDispatcherPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	const n = 100
	d := newDispatcher(func(kind EventKind, p *EventPayload) {
		mu.Lock()
		got = append(got, p.Message.ID)
		if len(got) == n {
			close(done)
		}
		mu.Unlock()
	}, nil, zap.NewNop())
	defer d.close()

	for i := 0; i < n; i++ {
		d.push(EventMessage, &EventPayload{Message: msgID(i)})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range got {
		if id != msgID(i).ID {
			t.Fatalf("event %d = %s, want %s", i, id, msgID(i).ID)
		}
	}
}

func TestDispatcherSurvivesHandlerPanic(t *testing.T) {
	delivered := make(chan EventKind, 2)
	d := newDispatcher(func(kind EventKind, p *EventPayload) {
		delivered <- kind
		if kind == EventMessage {
			panic("handler bug")
		}
	}, nil, zap.NewNop())
	defer d.close()

	d.push(EventMessage, &EventPayload{})
	d.push(EventReceipt, &EventPayload{})

	for _, want := range []EventKind{EventMessage, EventReceipt} {
		select {
		case got := <-delivered:
			if got != want {
				t.Fatalf("delivered %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %s never delivered after panic", want)
		}
	}
}

func TestDispatcherAppliesBeforeHandler(t *testing.T) {
	var order []string
	done := make(chan struct{})

	d := newDispatcher(func(EventKind, *EventPayload) {
		order = append(order, "handler")
		close(done)
	}, func(EventKind, *EventPayload) {
		order = append(order, "apply")
	}, zap.NewNop())
	defer d.close()

	d.push(EventContact, &EventPayload{})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if len(order) != 2 || order[0] != "apply" || order[1] != "handler" {
		t.Errorf("order = %v, want [apply handler]", order)
	}
}

func TestDispatcherDropsUnknown(t *testing.T) {
	d := newDispatcher(func(kind EventKind, p *EventPayload) {
		t.Errorf("unexpected delivery of %s", kind)
	}, nil, zap.NewNop())
	d.push(EventUnknown, nil)
	d.close()
}

func TestPushAfterCloseDoesNotBlock(t *testing.T) {
	d := newDispatcher(func(EventKind, *EventPayload) {}, nil, zap.NewNop())
	d.close()

	done := make(chan struct{})
	go func() {
		d.push(EventMessage, &EventPayload{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push after close blocked")
	}
}

func msgID(i int) types.Message {
	return types.Message{ID: fmt.Sprintf("m-%03d", i)}
}

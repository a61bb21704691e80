package sinkvol

import (
	"go.uber.org/zap"

	"github.com/jfreymuth/sinkvol/proto"
)

type EventKind int

const (
	// EventSinkAppeared is queued for every new sink, it may be the preferred one.
	EventSinkAppeared EventKind = iota
	// EventSinkChanged is queued when the active sink changed, usually its volume.
	EventSinkChanged
	// EventSinkRemoved is queued when the active sink disappeared.
	EventSinkRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventSinkAppeared:
		return "appeared"
	case EventSinkChanged:
		return "changed"
	case EventSinkRemoved:
		return "removed"
	}
	return "invalid"
}

// An Event is a queued sink notification. It is interpreted when it is drained.
type Event struct {
	Kind  EventKind
	Index uint32
}

// onSubscribe runs on the loop goroutine.
func (c *Conn) onSubscribe(event proto.SubscriptionEventType, index uint32) {
	if index == proto.Undefined {
		c.log.Warn("discarding notification", zap.Error(&InvalidNotificationError{Event: event, Index: index}))
		return
	}
	if event.GetFacility() != proto.EventSink {
		return
	}
	var kind EventKind
	switch event.GetType() {
	case proto.EventNew:
		kind = EventSinkAppeared
	case proto.EventChange:
		if index != c.sink.Index {
			return
		}
		kind = EventSinkChanged
	case proto.EventRemove:
		if index != c.sink.Index {
			return
		}
		kind = EventSinkRemoved
	default:
		return
	}
	c.log.Debug("queued event", zap.Stringer("kind", kind), zap.Uint32("index", index))
	c.events = append(c.events, Event{Kind: kind, Index: index})
	select {
	case c.notify <- struct{}{}:
	default:
	}
	c.loop.Signal()
}

// HasPendingEvents reports whether DrainEvents has work to do.
// It reports false after Close.
func (c *Conn) HasPendingEvents() bool {
	var pending bool
	_ = c.exchange(func() error {
		pending = len(c.events) > 0
		return nil
	})
	return pending
}

// Events returns a channel that receives a value after events were queued.
// Several events may be coalesced into one value. The channel is closed by Close.
func (c *Conn) Events() <-chan struct{} {
	return c.notify
}

// DrainEvents processes the queued events in order and returns how many were processed.
// Processing stops at the first error; the events after it stay queued.
func (c *Conn) DrainEvents() (int, error) {
	var n int
	err := c.exchange(func() error {
		pending := len(c.events)
		var err error
		for n < pending && err == nil {
			ev := c.events[n]
			n++
			err = c.process(ev)
		}
		c.events = c.events[n:]
		if len(c.events) == 0 {
			c.events = nil
		}
		return err
	})
	return n, err
}

func (c *Conn) process(ev Event) error {
	c.log.Debug("processing event", zap.Stringer("kind", ev.Kind), zap.Uint32("index", ev.Index))
	switch ev.Kind {
	case EventSinkAppeared:
		return c.resolve()
	case EventSinkChanged:
		if ev.Index != c.sink.Index {
			return nil
		}
		muted := c.muted
		if err := c.fetch(); err != nil {
			return err
		}
		if !c.refreshMute {
			c.muted = muted
		}
		return nil
	case EventSinkRemoved:
		if ev.Index != c.sink.Index {
			return nil
		}
		return c.resolve()
	}
	return nil
}

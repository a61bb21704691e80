// Package sinkvol controls the volume and mute state of one PulseAudio sink.
//
// A Conn talks to the server through an asynchronous context whose callbacks
// run on a dedicated event loop goroutine. Every method of Conn blocks until
// the exchanges it started have completed and is safe for concurrent use.
package sinkvol

import (
	"fmt"
	"os"
	"path"
	"sync"

	"go.uber.org/zap"

	"github.com/jfreymuth/sinkvol/mainloop"
	"github.com/jfreymuth/sinkvol/paclient"
	"github.com/jfreymuth/sinkvol/proto"
)

// Context is the asynchronous protocol engine used by a Conn.
// It is implemented by *paclient.Context. All methods are called with the loop lock held,
// and all callbacks must run on the loop goroutine.
type Context interface {
	SetStateCallback(func())
	SetSubscribeCallback(paclient.SubscribeCallback)
	State() paclient.State
	Err() error
	Connect(server string) error
	Disconnect()

	GetSinkInfoByName(name string, cb paclient.SinkInfoCallback) *paclient.Operation
	GetSinkInfoByIndex(index uint32, cb paclient.SinkInfoCallback) *paclient.Operation
	GetServerInfo(cb paclient.ServerInfoCallback) *paclient.Operation
	SetSinkVolumeByIndex(index uint32, volume proto.ChannelVolumes, cb paclient.SuccessCallback) *paclient.Operation
	SetSinkMuteByIndex(index uint32, mute bool, cb paclient.SuccessCallback) *paclient.Operation
	Subscribe(mask proto.SubscriptionMask, cb paclient.SuccessCallback) *paclient.Operation
}

// ContextFactory creates the Context of a new Conn.
type ContextFactory func(loop *mainloop.Loop, props proto.PropList, log *zap.Logger) Context

// Conn is a connection to a PulseAudio server, bound to one sink.
type Conn struct {
	mu     sync.Mutex // serializes callers, Wait releases the loop lock
	closed bool

	loop *mainloop.Loop
	ctx  Context
	log  *zap.Logger

	// guarded by the loop lock
	sink   Sink
	volume proto.ChannelVolumes
	muted  bool
	events []Event
	notify chan struct{}

	server      string
	appName     string
	refreshMute bool
	newContext  ContextFactory
	rootLog     *zap.Logger
}

// Open connects to the server and resolves sinkName. If no sink of that name
// exists, the server's default sink is used until it appears.
func Open(sinkName string, opts ...ConnOption) (*Conn, error) {
	c := &Conn{
		sink:    Sink{PreferredName: sinkName, Index: proto.Undefined},
		notify:  make(chan struct{}, 1),
		appName: path.Base(os.Args[0]),
		rootLog: zap.NewNop(),
		newContext: func(loop *mainloop.Loop, props proto.PropList, log *zap.Logger) Context {
			return paclient.New(loop, props, log)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.rootLog.Named("sinkvol")

	c.loop = mainloop.New(c.rootLog)
	if err := c.loop.Start(); err != nil {
		return nil, &ConnectError{State: paclient.StateUnconnected, Err: err}
	}
	c.ctx = c.newContext(c.loop, c.props(), c.rootLog)

	c.loop.Lock()
	err := c.connect()
	c.loop.Unlock()
	if err != nil {
		c.teardown()
		return nil, err
	}
	return c, nil
}

func (c *Conn) props() proto.PropList {
	props := proto.PropList{
		"application.name":           proto.PropListString(c.appName),
		"application.process.id":     proto.PropListString(fmt.Sprint(os.Getpid())),
		"application.process.binary": proto.PropListString(os.Args[0]),
	}
	if display, ok := os.LookupEnv("DISPLAY"); ok {
		props["window.x11.display"] = proto.PropListString(display)
	}
	return props
}

func (c *Conn) connect() error {
	c.ctx.SetStateCallback(c.loop.Signal)
	if err := c.ctx.Connect(c.server); err != nil {
		return &ConnectError{State: c.ctx.State(), Err: err}
	}
	for !c.ctx.State().Terminal() {
		c.loop.Wait()
	}
	if state := c.ctx.State(); state != paclient.StateReady {
		return &ConnectError{State: state, Err: c.ctx.Err()}
	}
	c.ctx.SetStateCallback(c.onStateChange)
	c.log.Debug("connected", zap.String("server", c.server))

	// Subscribe before resolving so no sink that appears meanwhile is missed.
	c.ctx.SetSubscribeCallback(c.onSubscribe)
	err := c.do("subscribe", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.Subscribe(proto.SubscriptionMaskSink, done)
	})
	if err != nil {
		return &ConnectError{State: c.ctx.State(), Err: err}
	}
	if err := c.resolve(); err != nil {
		return &ConnectError{State: c.ctx.State(), Err: err}
	}
	return nil
}

func (c *Conn) onStateChange() {
	switch state := c.ctx.State(); state {
	case paclient.StateFailed, paclient.StateTerminated:
		c.log.Warn("connection lost", zap.Stringer("state", state), zap.Error(c.ctx.Err()))
	}
	c.loop.Signal()
}

// Close disconnects from the server. No callback runs after Close returns.
// Calling Close more than once has no effect.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.teardown()
}

func (c *Conn) teardown() {
	c.loop.Stop()
	c.loop.Lock()
	c.ctx.Disconnect()
	c.loop.Unlock()
	close(c.notify)
}

// exchange runs fn with the caller mutex and the loop lock held.
func (c *Conn) exchange(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.loop.Lock()
	defer c.loop.Unlock()
	return fn()
}

type ConnOption func(*Conn)

// see https://www.freedesktop.org/wiki/Software/PulseAudio/Documentation/User/ServerStrings/
func ConnServerString(s string) ConnOption {
	return func(c *Conn) { c.server = s }
}

func ConnApplicationName(name string) ConnOption {
	return func(c *Conn) { c.appName = name }
}

func ConnLogger(log *zap.Logger) ConnOption {
	return func(c *Conn) {
		if log != nil {
			c.rootLog = log
		}
	}
}

// ConnRefreshMuteOnChange makes DrainEvents update the cached mute state on sink changes,
// in addition to the volume.
func ConnRefreshMuteOnChange(refresh bool) ConnOption {
	return func(c *Conn) { c.refreshMute = refresh }
}

// ConnContext replaces the protocol context, mostly useful for tests.
func ConnContext(f ContextFactory) ConnOption {
	return func(c *Conn) { c.newContext = f }
}

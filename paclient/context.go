// Package paclient provides an asynchronous PulseAudio context bound to a
// threaded main loop. Every callback, including state changes and
// subscription events, runs on the loop goroutine with the loop lock held.
// All methods of Context must be called with the loop lock held.
package paclient

import (
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/jfreymuth/sinkvol/mainloop"
	"github.com/jfreymuth/sinkvol/proto"
)

type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateAuthorizing
	StateSettingName
	StateReady
	StateFailed
	StateTerminated
)

var stateNames = [...]string{
	StateUnconnected: "unconnected",
	StateConnecting:  "connecting",
	StateAuthorizing: "authorizing",
	StateSettingName: "setting name",
	StateReady:       "ready",
	StateFailed:      "failed",
	StateTerminated:  "terminated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Terminal reports whether the connection handshake is over, successfully or not.
func (s State) Terminal() bool {
	return s >= StateReady
}

type SinkInfo struct {
	Index       uint32
	Name        string
	Description string
	ChannelMap  proto.ChannelMap
	Volume      proto.ChannelVolumes
	Mute        bool
	BaseVolume  proto.Volume
}

type ServerInfo struct {
	PackageName       string
	PackageVersion    string
	Username          string
	Hostname          string
	DefaultSinkName   string
	DefaultSourceName string
}

type (
	SinkInfoCallback   func(*SinkInfo, error)
	ServerInfoCallback func(*ServerInfo, error)
	SuccessCallback    func(error)
	SubscribeCallback  func(event proto.SubscriptionEventType, index uint32)
)

// Context is a connection to a PulseAudio server.
type Context struct {
	loop  *mainloop.Loop
	props proto.PropList
	log   *zap.Logger

	state       State
	err         error
	client      *proto.Client
	conn        net.Conn
	stateCb     func()
	subscribeCb SubscribeCallback
	pending     map[*Operation]struct{}
}

// New creates an unconnected context. props are sent to the server as the client properties.
func New(loop *mainloop.Loop, props proto.PropList, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		loop:    loop,
		props:   props,
		log:     log.Named("paclient"),
		pending: make(map[*Operation]struct{}),
	}
}

func (c *Context) State() State { return c.state }

// Err returns the error that moved the context to StateFailed or StateTerminated.
func (c *Context) Err() error { return c.err }

// SetStateCallback sets a function that is called on every state change.
func (c *Context) SetStateCallback(cb func()) { c.stateCb = cb }

// SetSubscribeCallback sets the function receiving subscription events.
func (c *Context) SetSubscribeCallback(cb SubscribeCallback) { c.subscribeCb = cb }

func (c *Context) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("state changed", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	if c.stateCb != nil {
		c.stateCb()
	}
}

// Connect starts connecting to server. It returns immediately, progress is
// reported through the state callback.
func (c *Context) Connect(server string) error {
	if c.state != StateUnconnected {
		return proto.ErrBadState
	}
	c.setState(StateConnecting)
	go c.handshake(server)
	return nil
}

func (c *Context) handshake(server string) {
	conn, err := proto.Dial(server)
	if err != nil {
		c.loop.Post(func() { c.fail(err) })
		return
	}
	client := &proto.Client{
		Callback: c.onMessage,
		OnError: func(err error) {
			c.loop.Post(func() { c.fail(err) })
		},
	}
	client.Open(conn)

	if !c.loop.Post(func() {
		if c.state.Terminal() {
			client.Close()
			conn.Close()
			return
		}
		c.client, c.conn = client, conn
		c.setState(StateAuthorizing)
	}) {
		client.Close()
		conn.Close()
		return
	}

	cookie, err := proto.ReadCookie()
	if err == nil {
		err = client.Authenticate(cookie)
	}
	if err != nil {
		c.loop.Post(func() { c.fail(err) })
		return
	}
	c.advance(StateSettingName)

	err = client.Request(&proto.SetClientName{Props: c.props}, &proto.SetClientNameReply{})
	if err != nil {
		c.loop.Post(func() { c.fail(err) })
		return
	}
	c.advance(StateReady)
}

func (c *Context) advance(s State) {
	c.loop.Post(func() {
		if !c.state.Terminal() {
			c.setState(s)
		}
	})
}

func (c *Context) fail(err error) {
	if c.state == StateFailed || c.state == StateTerminated {
		return
	}
	state := StateFailed
	if c.state == StateReady && errors.Is(err, io.EOF) {
		state = StateTerminated
	}
	c.log.Warn("connection failed", zap.Stringer("state", c.state), zap.Error(err))
	c.err = err
	c.closeConn()
	c.setState(state)
}

func (c *Context) closeConn() {
	if c.client != nil {
		c.client.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Disconnect closes the connection and cancels all outstanding operations.
// No callback is invoked afterwards, including the state callback.
func (c *Context) Disconnect() {
	for op := range c.pending {
		op.Cancel()
		delete(c.pending, op)
	}
	c.stateCb = nil
	c.subscribeCb = nil
	c.closeConn()
	if c.state != StateFailed {
		c.state = StateTerminated
	}
}

func (c *Context) onMessage(msg interface{}) {
	ev, ok := msg.(*proto.SubscribeEvent)
	if !ok {
		return
	}
	c.loop.Post(func() {
		c.log.Debug("subscription event", zap.Stringer("event", ev.Event), zap.Uint32("index", ev.Index))
		if c.subscribeCb != nil {
			c.subscribeCb(ev.Event, ev.Index)
		}
	})
}

func (c *Context) request(req proto.RequestArgs, rpl proto.Reply, done func(error)) *Operation {
	op := NewOperation()
	if c.state != StateReady {
		c.loop.Post(func() { c.finish(op, done, proto.ErrBadState) })
		return op
	}
	c.pending[op] = struct{}{}
	c.client.RequestAsync(req, rpl, func(err error) {
		c.loop.Post(func() { c.finish(op, done, err) })
	})
	return op
}

func (c *Context) finish(op *Operation, done func(error), err error) {
	delete(c.pending, op)
	if !op.Complete() {
		return
	}
	done(err)
}

func (c *Context) GetSinkInfoByName(name string, cb SinkInfoCallback) *Operation {
	return c.getSinkInfo(&proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: name}, cb)
}

func (c *Context) GetSinkInfoByIndex(index uint32, cb SinkInfoCallback) *Operation {
	return c.getSinkInfo(&proto.GetSinkInfo{SinkIndex: index}, cb)
}

func (c *Context) getSinkInfo(req *proto.GetSinkInfo, cb SinkInfoCallback) *Operation {
	var reply proto.GetSinkInfoReply
	return c.request(req, &reply, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&SinkInfo{
			Index:       reply.SinkIndex,
			Name:        reply.SinkName,
			Description: reply.Device,
			ChannelMap:  reply.ChannelMap,
			Volume:      reply.ChannelVolumes,
			Mute:        reply.Mute,
			BaseVolume:  reply.BaseVolume,
		}, nil)
	})
}

func (c *Context) GetServerInfo(cb ServerInfoCallback) *Operation {
	var reply proto.GetServerInfoReply
	return c.request(&proto.GetServerInfo{}, &reply, func(err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&ServerInfo{
			PackageName:       reply.PackageName,
			PackageVersion:    reply.PackageVersion,
			Username:          reply.Username,
			Hostname:          reply.Hostname,
			DefaultSinkName:   reply.DefaultSinkName,
			DefaultSourceName: reply.DefaultSourceName,
		}, nil)
	})
}

func (c *Context) SetSinkVolumeByIndex(index uint32, volume proto.ChannelVolumes, cb SuccessCallback) *Operation {
	return c.request(&proto.SetSinkVolume{SinkIndex: index, ChannelVolumes: volume}, nil, cb)
}

func (c *Context) SetSinkMuteByIndex(index uint32, mute bool, cb SuccessCallback) *Operation {
	return c.request(&proto.SetSinkMute{SinkIndex: index, Mute: mute}, nil, cb)
}

// Subscribe selects the facilities whose events are passed to the subscribe callback.
func (c *Context) Subscribe(mask proto.SubscriptionMask, cb SuccessCallback) *Operation {
	return c.request(&proto.Subscribe{Mask: mask}, nil, cb)
}

package sinkvol

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/jfreymuth/sinkvol/mainloop"
	"github.com/jfreymuth/sinkvol/paclient"
	"github.com/jfreymuth/sinkvol/proto"
)

type fakeSink struct {
	index  uint32
	name   string
	volume proto.ChannelVolumes
	mute   bool
}

// fakeServer implements Context on top of a real loop. Requests complete
// asynchronously on the loop goroutine, in the order they were issued.
type fakeServer struct {
	loop *mainloop.Loop

	connectErr    error
	sinkInfoErr   error
	serverInfoErr error

	// announce lists sinks reported as new right after a subscription is acknowledged.
	announce []uint32
	// beforeReply runs when a request is issued, before its reply is queued.
	beforeReply func()

	state       paclient.State
	err         error
	stateCb     func()
	subscribeCb paclient.SubscribeCallback
	pending     map[*paclient.Operation]struct{}

	sinks       []*fakeSink
	defaultSink string
	requests    int
	mask        proto.SubscriptionMask
}

func newFakeServer(defaultSink string, sinks ...*fakeSink) *fakeServer {
	return &fakeServer{
		defaultSink: defaultSink,
		sinks:       sinks,
		pending:     make(map[*paclient.Operation]struct{}),
	}
}

func (s *fakeServer) factory(loop *mainloop.Loop, props proto.PropList, log *zap.Logger) Context {
	s.loop = loop
	return s
}

func (s *fakeServer) SetStateCallback(cb func())                         { s.stateCb = cb }
func (s *fakeServer) SetSubscribeCallback(cb paclient.SubscribeCallback) { s.subscribeCb = cb }
func (s *fakeServer) State() paclient.State                              { return s.state }
func (s *fakeServer) Err() error                                         { return s.err }

func (s *fakeServer) setState(state paclient.State) {
	s.state = state
	if s.stateCb != nil {
		s.stateCb()
	}
}

func (s *fakeServer) Connect(server string) error {
	s.setState(paclient.StateConnecting)
	s.loop.Post(func() { s.setState(paclient.StateAuthorizing) })
	s.loop.Post(func() { s.setState(paclient.StateSettingName) })
	s.loop.Post(func() {
		if s.connectErr != nil {
			s.err = s.connectErr
			s.setState(paclient.StateFailed)
			return
		}
		s.setState(paclient.StateReady)
	})
	return nil
}

func (s *fakeServer) Disconnect() {
	for op := range s.pending {
		op.Cancel()
		delete(s.pending, op)
	}
	s.stateCb = nil
	s.subscribeCb = nil
	if s.state != paclient.StateFailed {
		s.state = paclient.StateTerminated
	}
}

func (s *fakeServer) start(reply func(err error)) *paclient.Operation {
	s.requests++
	op := paclient.NewOperation()
	s.pending[op] = struct{}{}
	var err error
	if s.state != paclient.StateReady {
		err = proto.ErrBadState
	}
	if s.beforeReply != nil {
		s.beforeReply()
	}
	s.loop.Post(func() {
		delete(s.pending, op)
		if op.Complete() {
			reply(err)
		}
	})
	return op
}

func (s *fakeServer) byName(name string) *fakeSink {
	for _, sk := range s.sinks {
		if sk.name == name {
			return sk
		}
	}
	return nil
}

func (s *fakeServer) byIndex(index uint32) *fakeSink {
	for _, sk := range s.sinks {
		if sk.index == index {
			return sk
		}
	}
	return nil
}

func (sk *fakeSink) info() *paclient.SinkInfo {
	return &paclient.SinkInfo{
		Index:  sk.index,
		Name:   sk.name,
		Volume: append(proto.ChannelVolumes(nil), sk.volume...),
		Mute:   sk.mute,
	}
}

func (s *fakeServer) replySink(sk *fakeSink, cb paclient.SinkInfoCallback) func(error) {
	return func(err error) {
		switch {
		case err != nil:
			cb(nil, err)
		case sk == nil:
			cb(nil, proto.ErrNoSuchEntity)
		default:
			cb(sk.info(), nil)
		}
	}
}

func (s *fakeServer) GetSinkInfoByName(name string, cb paclient.SinkInfoCallback) *paclient.Operation {
	return s.start(func(err error) { s.replySink(s.byName(name), cb)(err) })
}

func (s *fakeServer) GetSinkInfoByIndex(index uint32, cb paclient.SinkInfoCallback) *paclient.Operation {
	return s.start(func(err error) {
		if err == nil {
			err = s.sinkInfoErr
		}
		s.replySink(s.byIndex(index), cb)(err)
	})
}

func (s *fakeServer) GetServerInfo(cb paclient.ServerInfoCallback) *paclient.Operation {
	return s.start(func(err error) {
		if err == nil {
			err = s.serverInfoErr
		}
		if err != nil {
			cb(nil, err)
			return
		}
		cb(&paclient.ServerInfo{PackageName: "fake", DefaultSinkName: s.defaultSink}, nil)
	})
}

func (s *fakeServer) SetSinkVolumeByIndex(index uint32, volume proto.ChannelVolumes, cb paclient.SuccessCallback) *paclient.Operation {
	return s.start(func(err error) {
		sk := s.byIndex(index)
		if err == nil && sk == nil {
			err = proto.ErrNoSuchEntity
		}
		if err == nil {
			sk.volume = append(proto.ChannelVolumes(nil), volume...)
		}
		cb(err)
	})
}

func (s *fakeServer) SetSinkMuteByIndex(index uint32, mute bool, cb paclient.SuccessCallback) *paclient.Operation {
	return s.start(func(err error) {
		sk := s.byIndex(index)
		if err == nil && sk == nil {
			err = proto.ErrNoSuchEntity
		}
		if err == nil {
			sk.mute = mute
		}
		cb(err)
	})
}

func (s *fakeServer) Subscribe(mask proto.SubscriptionMask, cb paclient.SuccessCallback) *paclient.Operation {
	return s.start(func(err error) {
		if err == nil {
			s.mask = mask
		}
		cb(err)
		if err == nil && s.subscribeCb != nil {
			for _, index := range s.announce {
				s.subscribeCb(proto.EventSink|proto.EventNew, index)
			}
		}
	})
}

// edit changes the server state from the test goroutine.
func (s *fakeServer) edit(fn func()) {
	s.loop.Lock()
	defer s.loop.Unlock()
	fn()
}

// emit delivers a subscription event and waits until the loop processed it.
func (s *fakeServer) emit(event proto.SubscriptionEventType, index uint32) {
	s.loop.Post(func() {
		if s.subscribeCb != nil {
			s.subscribeCb(event, index)
		}
	})
	s.sync()
}

func (s *fakeServer) sync() {
	done := make(chan struct{})
	s.loop.Post(func() { close(done) })
	<-done
}

// drop simulates the server going away.
func (s *fakeServer) drop() {
	s.loop.Post(func() {
		s.err = errors.New("connection reset")
		s.setState(paclient.StateFailed)
	})
	s.sync()
}

func (s *fakeServer) requestCount() int {
	s.loop.Lock()
	defer s.loop.Unlock()
	return s.requests
}

func newTestConn(t *testing.T, preferred string, srv *fakeServer, opts ...ConnOption) *Conn {
	t.Helper()
	opts = append([]ConnOption{ConnContext(srv.factory), ConnLogger(zaptest.NewLogger(t))}, opts...)
	c, err := Open(preferred, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func stereo(v uint32) proto.ChannelVolumes {
	return proto.ChannelVolumes{v, v}
}

package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func readFrame(conn net.Conn) (op, tag uint32, payload []byte, err error) {
	var header [20]byte
	if _, err = io.ReadFull(conn, header[:]); err != nil {
		return
	}
	payload = make([]byte, binary.BigEndian.Uint32(header[:4]))
	if _, err = io.ReadFull(conn, payload); err != nil {
		return
	}
	return binary.BigEndian.Uint32(payload[1:5]), binary.BigEndian.Uint32(payload[6:10]), payload[10:], nil
}

func writeFrame(conn net.Conn, op, tag uint32, value interface{}) error {
	var payload bytes.Buffer
	w := ProtocolWriter{w: &payload}
	w.byte('L')
	w.uint32(op)
	w.byte('L')
	w.uint32(tag)
	switch value := value.(type) {
	case Error:
		w.byte('L')
		w.uint32(uint32(value))
	default:
		w.value(value, Version(32))
	}
	w.flush()

	var frame bytes.Buffer
	fw := ProtocolWriter{w: &frame}
	fw.uint32(uint32(payload.Len()))
	fw.uint32(controlChannel)
	fw.uint64(0)
	fw.uint32(0)
	fw.flush()
	frame.Write(payload.Bytes())
	_, err := conn.Write(frame.Bytes())
	return err
}

func openTestClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	cli, srv := net.Pipe()
	c := &Client{}
	c.Open(cli)
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})
	return c, srv
}

func TestClientRequest(t *testing.T) {
	c, srv := openTestClient(t)
	go func() {
		op, tag, _, err := readFrame(srv)
		if err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		if op != OpGetServerInfo {
			t.Errorf("expecting command %d, got %d", OpGetServerInfo, op)
		}
		writeFrame(srv, OpReply, tag, &GetServerInfoReply{DefaultSinkName: "hdmi", DefaultChannelMap: ChannelMap{1, 2}})
	}()

	var reply GetServerInfoReply
	if err := c.Request(&GetServerInfo{}, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.DefaultSinkName != "hdmi" {
		t.Errorf("expecting default sink %q, got %q", "hdmi", reply.DefaultSinkName)
	}
}

func TestClientRequestError(t *testing.T) {
	c, srv := openTestClient(t)
	go func() {
		_, tag, payload, err := readFrame(srv)
		if err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		r := newTestReader(payload)
		var req GetSinkInfo
		r.value(&req, Version(32))
		if req.SinkName != "missing" || req.SinkIndex != Undefined {
			t.Errorf("unexpected request %+v", req)
		}
		writeFrame(srv, OpError, tag, ErrNoSuchEntity)
	}()

	err := c.Request(&GetSinkInfo{SinkIndex: Undefined, SinkName: "missing"}, &GetSinkInfoReply{})
	if !errors.Is(err, ErrNoSuchEntity) {
		t.Errorf("expecting %v, got %v", ErrNoSuchEntity, err)
	}
}

func TestClientWrongReplyType(t *testing.T) {
	c, _ := openTestClient(t)
	if err := c.Request(&GetServerInfo{}, &GetSinkInfoReply{}); err == nil {
		t.Error("expecting an error for a mismatched reply type")
	}
}

func TestClientSubscribeEvent(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()
	defer srv.Close()

	events := make(chan *SubscribeEvent, 1)
	c := &Client{Callback: func(msg interface{}) {
		if ev, ok := msg.(*SubscribeEvent); ok {
			events <- ev
		}
	}}
	c.Open(cli)

	go writeFrame(srv, OpSubscribeEvent, controlChannel, &SubscribeEvent{Event: EventSink | EventRemove, Index: 7})

	select {
	case ev := <-events:
		if ev.Event.GetType() != EventRemove || ev.Event.GetFacility() != EventSink || ev.Index != 7 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the subscribe event")
	}
}

func TestClientConnectionLost(t *testing.T) {
	cli, srv := net.Pipe()
	defer cli.Close()

	lost := make(chan error, 1)
	c := &Client{OnError: func(err error) { lost <- err }}
	c.Open(cli)

	go func() {
		readFrame(srv)
		srv.Close()
	}()

	if err := c.Request(&GetServerInfo{}, &GetServerInfoReply{}); err == nil {
		t.Error("expecting the pending request to fail")
	}
	select {
	case err := <-lost:
		if err == nil {
			t.Error("expecting a non-nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnError was not called")
	}
	if err := c.Request(&GetServerInfo{}, &GetServerInfoReply{}); err == nil {
		t.Error("expecting requests after the failure to fail")
	}
}

func TestClientClose(t *testing.T) {
	c, _ := openTestClient(t)
	c.Close()
	done := make(chan error, 1)
	c.RequestAsync(&GetServerInfo{}, &GetServerInfoReply{}, func(err error) { done <- err })
	if err := <-done; !errors.Is(err, ErrClientClosed) {
		t.Errorf("expecting %v, got %v", ErrClientClosed, err)
	}
}

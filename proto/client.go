package proto

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

const controlChannel = 0xFFFFFFFF

// ErrClientClosed is returned for requests issued after Close.
var ErrClientClosed = errors.New("pulseaudio: client closed")

// Client multiplexes requests over a connection to the server.
// Replies are matched to requests by tag; everything else is passed to Callback.
type Client struct {
	r ProtocolReader
	w ProtocolWriter
	v Version

	replyM     sync.Mutex
	nextID     uint32
	awaitReply map[uint32]awaitReply
	err        error

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	// Callback receives server -> client messages. It runs on the read goroutine.
	Callback func(interface{})
	// OnError is called once when the connection fails. It runs on the read goroutine.
	OnError func(error)
}

type awaitReply struct {
	value Reply
	done  func(error)
}

func (c *Client) Version() Version {
	return c.v
}

func (c *Client) SetVersion(v Version) {
	c.v = c.v.Min(v)
}

// Open starts the read and write goroutines. Callback and OnError must be set before.
func (c *Client) Open(rw io.ReadWriter) {
	c.r.r = bufio.NewReader(rw)
	c.w.w = rw
	c.v = Version(32)

	c.send = make(chan []byte)
	c.closed = make(chan struct{})
	c.awaitReply = make(map[uint32]awaitReply)
	go c.readLoop()
	go c.writeLoop()
}

// Request sends a request and waits for the reply.
func (c *Client) Request(req RequestArgs, rpl Reply) error {
	reply := make(chan error, 1)
	c.RequestAsync(req, rpl, func(err error) { reply <- err })
	return <-reply
}

// RequestAsync sends a request and returns without waiting for the reply.
// done is called exactly once, either from the read goroutine when the reply
// arrives or from the calling goroutine if the request could not be sent.
// rpl must not be accessed before done was called.
func (c *Client) RequestAsync(req RequestArgs, rpl Reply, done func(error)) {
	if rpl != nil && req.command() != rpl.IsReplyTo() {
		done(fmt.Errorf("pulseaudio: wrong reply type, got %d but expected %d", rpl.IsReplyTo(), req.command()))
		return
	}

	c.replyM.Lock()
	if c.err != nil {
		err := c.err
		c.replyM.Unlock()
		done(err)
		return
	}
	tag := c.nextID
	c.nextID++
	c.awaitReply[tag] = awaitReply{rpl, done}
	c.replyM.Unlock()

	var buf bytes.Buffer
	w := ProtocolWriter{w: &buf}
	w.byte('L')
	w.uint32(req.command())
	w.byte('L')
	w.uint32(tag)
	w.value(req, c.v)
	w.flush()

	select {
	case c.send <- buf.Bytes():
	case <-c.closed:
		if a, ok := c.takeReply(tag); ok {
			a.done(c.closeErr())
		}
	}
}

// Close stops the write goroutine and fails all outstanding requests.
// The caller is responsible for closing the underlying connection.
func (c *Client) Close() {
	c.fail(ErrClientClosed)
}

func (c *Client) closeErr() error {
	c.replyM.Lock()
	defer c.replyM.Unlock()
	return c.err
}

func (c *Client) takeReply(tag uint32) (awaitReply, bool) {
	c.replyM.Lock()
	defer c.replyM.Unlock()
	a, ok := c.awaitReply[tag]
	if ok {
		delete(c.awaitReply, tag)
	}
	return a, ok
}

func (c *Client) writeLoop() {
	for {
		select {
		case data := <-c.send:
			c.w.uint32(uint32(len(data)))
			c.w.uint32(controlChannel)
			c.w.uint64(0)
			c.w.uint32(0)
			c.w.flush()
			if c.w.err == nil {
				if _, err := c.w.w.Write(data); err != nil {
					c.w.err = err
				}
			}
			if c.w.err != nil {
				c.fail(c.w.err)
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) readLoop() {
	for {
		length := c.r.uint32()
		index := c.r.uint32()
		c.r.uint64() // offset
		c.r.uint32() // flags
		if c.r.err != nil {
			c.fail(c.r.err)
			return
		}
		if index != controlChannel {
			// memblock data, only used by streams
			c.r.advance(int(length))
			continue
		}

		start := c.r.pos
		c.r.byte() // L
		op := c.r.uint32()
		c.r.byte() // L
		tag := c.r.uint32()
		switch op {
		case OpError:
			c.r.byte() // L
			code := Error(c.r.uint32())
			if a, ok := c.takeReply(tag); ok {
				a.done(code)
			}
		case OpReply:
			if a, ok := c.takeReply(tag); ok {
				if a.value != nil {
					c.r.value(a.value, c.v)
				}
				if c.r.err != nil {
					a.done(c.r.err)
				} else {
					a.done(nil)
				}
			}
		case OpSubscribeEvent:
			var msg SubscribeEvent
			c.r.value(&msg, c.v)
			if c.r.err == nil && c.Callback != nil {
				c.Callback(&msg)
			}
		}
		c.r.advance(int(length) - (c.r.pos - start))
		if c.r.err != nil {
			c.fail(c.r.err)
			return
		}
	}
}

func (c *Client) fail(err error) {
	c.replyM.Lock()
	if c.err != nil {
		c.replyM.Unlock()
		return
	}
	c.err = err
	pending := make([]func(error), 0, len(c.awaitReply))
	for tag, a := range c.awaitReply {
		pending = append(pending, a.done)
		delete(c.awaitReply, tag)
	}
	c.replyM.Unlock()

	c.closeOnce.Do(func() { close(c.closed) })
	for _, done := range pending {
		done(err)
	}
	if c.OnError != nil {
		c.OnError(err)
	}
}

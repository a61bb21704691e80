package sinkvol

import (
	"errors"

	"go.uber.org/zap"

	"github.com/jfreymuth/sinkvol/paclient"
	"github.com/jfreymuth/sinkvol/proto"
)

// A Sink describes which output device a Conn currently controls.
type Sink struct {
	// PreferredName is the sink name passed to Open.
	PreferredName string
	// FallbackName is the server's default sink at the time of the last fallback.
	FallbackName string
	// Index is the server index of the active sink, or proto.Undefined if there is none.
	Index uint32
	// Exists reports whether the active sink is the preferred one.
	Exists bool

	// Volume and Muted are the values from the last query of the active sink.
	Volume int
	Muted  bool
}

// Name returns the preferred sink name.
func (c *Conn) Name() string {
	return c.sink.PreferredName
}

// Sink returns the current resolution state without querying the server.
func (c *Conn) Sink() Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop.Lock()
	defer c.loop.Unlock()
	s := c.sink
	s.Volume = c.volume.Max().Percent()
	s.Muted = c.muted
	return s
}

func (c *Conn) active() bool {
	return c.sink.Index != proto.Undefined
}

// resolve looks up the preferred sink and falls back to the server default.
// The loop lock must be held.
func (c *Conn) resolve() error {
	if c.sink.PreferredName != "" {
		info, err := c.sinkInfoByName(c.sink.PreferredName)
		if err == nil {
			c.sink.Exists = true
			c.use(info)
			return nil
		}
		if !errors.Is(err, proto.ErrNoSuchEntity) {
			return err
		}
	}
	c.sink.Exists = false

	server, err := c.serverInfo()
	if err != nil {
		c.sink.Index = proto.Undefined
		return err
	}
	c.sink.FallbackName = server.DefaultSinkName
	if server.DefaultSinkName == "" {
		c.log.Warn("server has no default sink")
		c.sink.Index = proto.Undefined
		return nil
	}
	info, err := c.sinkInfoByName(server.DefaultSinkName)
	if err != nil {
		c.sink.Index = proto.Undefined
		if errors.Is(err, proto.ErrNoSuchEntity) {
			c.log.Warn("default sink not found", zap.String("sink", server.DefaultSinkName))
			return nil
		}
		return err
	}
	c.use(info)
	return nil
}

func (c *Conn) use(info *paclient.SinkInfo) {
	if info.Index != c.sink.Index {
		c.log.Info("using sink",
			zap.String("name", info.Name),
			zap.Uint32("index", info.Index),
			zap.Bool("preferred", c.sink.Exists))
	}
	c.sink.Index = info.Index
	c.volume = info.Volume
	c.muted = info.Mute
}

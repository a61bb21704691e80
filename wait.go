package sinkvol

import (
	"github.com/jfreymuth/sinkvol/paclient"
)

// await blocks until op is no longer running. The loop lock must be held.
// If the connection is lost meanwhile, op is cancelled.
func (c *Conn) await(op *paclient.Operation) error {
	for op.State() == paclient.OperationRunning {
		if c.ctx.State() != paclient.StateReady {
			op.Cancel()
			return ErrConnectionLost
		}
		c.loop.Wait()
	}
	return nil
}

// do starts one exchange and waits for it. The error passed to done is the
// result of the exchange.
func (c *Conn) do(name string, start func(done paclient.SuccessCallback) *paclient.Operation) error {
	var result error
	op := start(func(err error) {
		result = err
		c.loop.Signal()
	})
	if err := c.await(op); err != nil {
		result = err
	}
	if result != nil {
		return &RequestError{Op: name, Err: result}
	}
	return nil
}

func (c *Conn) sinkInfoByName(name string) (*paclient.SinkInfo, error) {
	var info *paclient.SinkInfo
	err := c.do("get sink info", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.GetSinkInfoByName(name, func(i *paclient.SinkInfo, err error) {
			info = i
			done(err)
		})
	})
	return info, err
}

func (c *Conn) sinkInfoByIndex(index uint32) (*paclient.SinkInfo, error) {
	var info *paclient.SinkInfo
	err := c.do("get sink info", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.GetSinkInfoByIndex(index, func(i *paclient.SinkInfo, err error) {
			info = i
			done(err)
		})
	})
	return info, err
}

func (c *Conn) serverInfo() (*paclient.ServerInfo, error) {
	var info *paclient.ServerInfo
	err := c.do("get server info", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.GetServerInfo(func(i *paclient.ServerInfo, err error) {
			info = i
			done(err)
		})
	})
	return info, err
}

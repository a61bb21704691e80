package sinkvol

import (
	"math"

	"github.com/jfreymuth/sinkvol/paclient"
	"github.com/jfreymuth/sinkvol/proto"
)

// VolumePercent returns the volume of the loudest channel, in percent of the normal volume.
func (c *Conn) VolumePercent() (int, error) {
	var percent int
	err := c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		percent = c.volume.Max().Percent()
		return nil
	})
	return percent, err
}

// SetVolumePercent sets the loudest channel to percent, keeping the balance between channels.
// The volume is limited to the normal volume (100%).
func (c *Conn) SetVolumePercent(percent float64) error {
	if math.IsNaN(percent) {
		return ErrInvalidVolume
	}
	return c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		target := proto.PercentToVolume(percent, proto.VolumeMuted, proto.VolumeNorm)
		return c.pushVolume(c.volume.Scale(target))
	})
}

// AdjustVolumePercent raises or lowers the volume by delta percent.
// Relative changes avoid the rounding errors of reading and setting the volume.
func (c *Conn) AdjustVolumePercent(delta int) error {
	return c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		return c.adjust(delta, proto.VolumeMax)
	})
}

// AdjustVolumePercentCapped is like AdjustVolumePercent, but never raises the volume above maxPercent.
// A volume that is already above the limit is left unchanged by an increment.
func (c *Conn) AdjustVolumePercentCapped(delta int, maxPercent float64) error {
	if math.IsNaN(maxPercent) {
		return ErrInvalidVolume
	}
	return c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		limit := percentToLimit(maxPercent)
		if delta > 0 && c.volume.Max() >= limit {
			return nil
		}
		return c.adjust(delta, limit)
	})
}

func percentToLimit(percent float64) proto.Volume {
	v := math.Round(percent * float64(proto.VolumeNorm) / 100)
	if v <= 0 {
		return proto.VolumeMuted
	}
	if v >= float64(proto.VolumeMax) {
		return proto.VolumeMax
	}
	return proto.Volume(v)
}

func (c *Conn) adjust(delta int, limit proto.Volume) error {
	if delta == 0 {
		return nil
	}
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	step := proto.PercentToVolume(float64(abs), proto.VolumeMuted, proto.VolumeNorm)
	if delta > 0 {
		return c.pushVolume(c.volume.Inc(step, limit))
	}
	return c.pushVolume(c.volume.Dec(step))
}

// fetch refreshes the cached volume and mute state of the active sink.
func (c *Conn) fetch() error {
	if !c.active() {
		return ErrNoActiveSink
	}
	info, err := c.sinkInfoByIndex(c.sink.Index)
	if err != nil {
		return err
	}
	c.volume = info.Volume
	c.muted = info.Mute
	return nil
}

func (c *Conn) pushVolume(cv proto.ChannelVolumes) error {
	index := c.sink.Index
	err := c.do("set sink volume", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.SetSinkVolumeByIndex(index, cv, done)
	})
	if err == nil {
		c.volume = cv
	}
	return err
}

// SetMute mutes or unmutes the active sink.
func (c *Conn) SetMute(mute bool) error {
	return c.exchange(func() error {
		if !c.active() {
			return ErrNoActiveSink
		}
		return c.pushMute(mute)
	})
}

// ToggleMute reads the mute state and sets its negation.
func (c *Conn) ToggleMute() error {
	return c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		return c.pushMute(!c.muted)
	})
}

// Muted queries the mute state of the active sink.
func (c *Conn) Muted() (bool, error) {
	var muted bool
	err := c.exchange(func() error {
		if err := c.fetch(); err != nil {
			return err
		}
		muted = c.muted
		return nil
	})
	return muted, err
}

func (c *Conn) pushMute(mute bool) error {
	index := c.sink.Index
	err := c.do("set sink mute", func(done paclient.SuccessCallback) *paclient.Operation {
		return c.ctx.SetSinkMuteByIndex(index, mute, done)
	})
	if err == nil {
		c.muted = mute
	}
	return err
}

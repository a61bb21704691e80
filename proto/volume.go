package proto

import "math"

// Volume is a software volume scalar. VolumeNorm is 100%, values above it are amplified.
type Volume uint32

const (
	VolumeMuted Volume = 0
	VolumeNorm  Volume = 0x10000
	VolumeMax   Volume = 0xFFFFFFFF / 2
)

// Percent returns the volume relative to VolumeNorm, rounded to the nearest integer.
func (v Volume) Percent() int {
	return int(math.Round(float64(v) * 100 / float64(VolumeNorm)))
}

// PercentToVolume maps percent onto the range [min, max], rounding to the
// nearest value with ties away from zero. The result is clamped to the range.
func PercentToVolume(percent float64, min, max Volume) Volume {
	v := math.Round(float64(min) + percent*float64(max-min)/100)
	if v < float64(min) {
		return min
	}
	if v > float64(max) {
		return max
	}
	return Volume(v)
}

// ChannelVolumes holds one volume per channel of a channel map.
type ChannelVolumes []uint32

// Max returns the loudest channel.
func (cv ChannelVolumes) Max() Volume {
	var m uint32
	for _, v := range cv {
		if v > m {
			m = v
		}
	}
	return Volume(m)
}

// Scale returns a copy of cv whose loudest channel is max. The balance between channels is kept.
// If all channels are muted, every channel is set to max.
func (cv ChannelVolumes) Scale(max Volume) ChannelVolumes {
	out := make(ChannelVolumes, len(cv))
	t := cv.Max()
	if t <= VolumeMuted {
		for i := range out {
			out[i] = uint32(max)
		}
		return out
	}
	for i, v := range cv {
		out[i] = uint32(uint64(v) * uint64(max) / uint64(t))
	}
	return out
}

// Inc raises the loudest channel by inc, but not above limit.
func (cv ChannelVolumes) Inc(inc, limit Volume) ChannelVolumes {
	m := cv.Max()
	if inc >= limit || m >= limit-inc {
		m = limit
	} else {
		m += inc
	}
	return cv.Scale(m)
}

// Dec lowers the loudest channel by dec, but not below VolumeMuted.
func (cv ChannelVolumes) Dec(dec Volume) ChannelVolumes {
	m := cv.Max()
	if m > VolumeMuted+dec {
		m -= dec
	} else {
		m = VolumeMuted
	}
	return cv.Scale(m)
}

package proto

import (
	"io"
	"reflect"
)

type ProtocolWriter struct {
	w   io.Writer
	buf []byte
	pos int
	err error
}

func (p *ProtocolWriter) flush() {
	if p.err != nil || p.pos == 0 {
		p.pos = 0
		return
	}
	if _, err := p.w.Write(p.buf[:p.pos]); err != nil {
		p.err = err
	}
	p.pos = 0
}

func (p *ProtocolWriter) ensure(n int) {
	if len(p.buf)-p.pos >= n {
		return
	}
	p.flush()
	if len(p.buf) < n {
		size := 1024
		if n > size {
			size = n
		}
		p.buf = make([]byte, size)
	}
}

func (p *ProtocolWriter) byte(b byte) {
	p.ensure(1)
	p.buf[p.pos] = b
	p.pos++
}

func (p *ProtocolWriter) uint32(u uint32) {
	p.ensure(4)
	p.buf[p.pos] = byte(u >> 24)
	p.buf[p.pos+1] = byte(u >> 16)
	p.buf[p.pos+2] = byte(u >> 8)
	p.buf[p.pos+3] = byte(u)
	p.pos += 4
}

func (p *ProtocolWriter) uint64(u uint64) {
	p.uint32(uint32(u >> 32))
	p.uint32(uint32(u))
}

func (p *ProtocolWriter) string(s string) {
	p.ensure(len(s) + 1)
	copy(p.buf[p.pos:], s)
	p.buf[p.pos+len(s)] = 0
	p.pos += len(s) + 1
}

func (p *ProtocolWriter) x(x []byte) {
	p.uint32(uint32(len(x)))
	p.ensure(len(x))
	copy(p.buf[p.pos:], x)
	p.pos += len(x)
}

func (p *ProtocolWriter) propList(list PropList) {
	for k, v := range list {
		p.byte('t')
		p.string(k)
		p.byte('L')
		p.uint32(uint32(len(v)))
		p.byte('x')
		p.x(v)
	}
	p.byte('N')
}

func (p *ProtocolWriter) value(i interface{}, version Version) {
	if i == nil {
		return
	}
	v := reflect.ValueOf(i).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if skipField(string(t.Field(i).Tag), version) {
			continue
		}

		switch f := v.Field(i).Interface().(type) {
		case string:
			if f == "" {
				p.byte('N')
			} else {
				p.byte('t')
				p.string(f)
			}
		case uint32:
			p.byte('L')
			p.uint32(f)
		case Version:
			p.byte('L')
			p.uint32(uint32(f))
		case SubscriptionMask:
			p.byte('L')
			p.uint32(uint32(f))
		case SubscriptionEventType:
			p.byte('L')
			p.uint32(uint32(f))
		case byte:
			p.byte('B')
			p.byte(f)
		case uint64:
			p.byte('R')
			p.uint64(f)
		case SampleSpec:
			p.byte('a')
			p.byte(f.Format)
			p.byte(f.Channels)
			p.uint32(f.Rate)
		case []byte:
			p.byte('x')
			p.x(f)
		case bool:
			if f {
				p.byte('1')
			} else {
				p.byte('0')
			}
		case Microseconds:
			p.byte('U')
			p.uint64(uint64(f))
		case ChannelMap:
			p.byte('m')
			p.byte(byte(len(f)))
			for i := range f {
				p.byte(f[i])
			}
		case ChannelVolumes:
			p.byte('v')
			p.byte(byte(len(f)))
			for i := range f {
				p.uint32(f[i])
			}
		case PropList:
			p.byte('P')
			p.propList(f)
		case Volume:
			p.byte('V')
			p.uint32(uint32(f))
		}
	}
}

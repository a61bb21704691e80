package proto

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"strconv"
)

const maxStringLength = 1024

type ProtocolReader struct {
	r      *bufio.Reader
	err    error
	pos    int
	intBuf [8]byte
	buf    bytes.Buffer
}

func (p *ProtocolReader) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *ProtocolReader) advance(n int) {
	if n <= 0 {
		return
	}
	p.tmpbytes(n)
	p.pos += n
}

func (p *ProtocolReader) byte() byte {
	if _, err := io.ReadFull(p.r, p.intBuf[:1]); err != nil {
		p.setErr(err)
		return 0
	}
	p.pos++
	return p.intBuf[0]
}

func (p *ProtocolReader) uint32() uint32 {
	if _, err := io.ReadFull(p.r, p.intBuf[:4]); err != nil {
		p.setErr(err)
		return 0
	}
	p.pos += 4
	return binary.BigEndian.Uint32(p.intBuf[:4])
}

func (p *ProtocolReader) uint64() uint64 {
	if _, err := io.ReadFull(p.r, p.intBuf[:8]); err != nil {
		p.setErr(err)
		return 0
	}
	p.pos += 8
	return binary.BigEndian.Uint64(p.intBuf[:8])
}

func (p *ProtocolReader) string() string {
	p.buf.Reset()

	// Like bufio.Reader.ReadBytes, but reusing our own buffer.
	for {
		frag, err := p.r.ReadSlice(0)
		if err == nil {
			p.buf.Write(frag)
			break
		}
		if err != bufio.ErrBufferFull {
			p.setErr(err)
			return ""
		}
		p.buf.Write(frag)
		if p.buf.Len() > maxStringLength {
			p.setErr(ErrProtocolError)
			return ""
		}
	}

	p.pos += p.buf.Len()
	return string(p.buf.Bytes()[:p.buf.Len()-1])
}

func (p *ProtocolReader) bytes(out []byte) {
	if _, err := io.ReadFull(p.r, out); err != nil {
		p.setErr(err)
		return
	}
	p.pos += len(out)
}

func (p *ProtocolReader) tmpbytes(n int) []byte {
	p.buf.Reset()
	if _, err := io.CopyN(&p.buf, p.r, int64(n)); err != nil {
		p.setErr(err)
		return nil
	}
	return p.buf.Bytes()
}

func (p *ProtocolReader) x() []byte {
	l := p.uint32()
	if p.err != nil {
		return nil
	}
	x := make([]byte, l)
	p.bytes(x)
	if p.err != nil {
		return nil
	}
	return x
}

func (p *ProtocolReader) propList(out PropList) {
	for p.err == nil {
		keyType := p.byte()
		if keyType == 'N' {
			break
		}
		if keyType != 't' {
			p.setErr(ErrProtocolError)
			return
		}
		key := p.string()
		if p.byte() != 'L' {
			p.setErr(ErrProtocolError)
			return
		}
		l := p.uint32()
		if p.byte() != 'x' {
			p.setErr(ErrProtocolError)
			return
		}
		value := p.x()
		if len(value) != int(l) {
			p.setErr(ErrProtocolError)
			return
		}
		out[key] = PropListEntry(value)
	}
}

func (p *ProtocolReader) formatInfo() FormatInfo {
	p.byte() // f
	p.byte() // B
	fi := FormatInfo{Encoding: p.byte(), Properties: make(PropList)}
	p.byte() // P
	p.propList(fi.Properties)
	return fi
}

// skipField reports whether a field tagged with a protocol version must be skipped.
// "15" means the field exists since version 15, "<15" means it was removed in 15.
func skipField(tag string, version Version) bool {
	if tag == "" {
		return false
	}
	if ver, err := strconv.Atoi(tag); err == nil {
		return ver > version.Version()
	}
	if tag[0] == '<' {
		if ver, err := strconv.Atoi(tag[1:]); err == nil {
			return ver <= version.Version()
		}
	}
	return false
}

func (p *ProtocolReader) value(i interface{}, version Version) {
	v := reflect.ValueOf(i).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if p.err != nil {
			return
		}
		if skipField(string(t.Field(i).Tag), version) {
			continue
		}

		f := v.Field(i)
		if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.Struct {
			if _, ok := f.Interface().([]FormatInfo); ok {
				p.byte() // B
				fi := make([]FormatInfo, p.byte())
				for i := range fi {
					fi[i] = p.formatInfo()
				}
				f.Set(reflect.ValueOf(fi))
			} else {
				p.byte() // L
				l := int(p.uint32())
				if p.err != nil {
					return
				}
				fv := reflect.MakeSlice(f.Type(), l, l)
				for i := 0; i < l; i++ {
					p.value(fv.Index(i).Addr().Interface(), version)
				}
				f.Set(fv)
			}
			continue
		}

		switch typ := p.byte(); typ {
		case 't':
			f.SetString(p.string())
		case 'N':
			f.SetString("")
		case 'L':
			f.SetUint(uint64(p.uint32()))
		case 'B':
			f.SetUint(uint64(p.byte()))
		case 'R', 'U':
			f.SetUint(p.uint64())
		case 'r':
			f.SetInt(int64(p.uint64()))
		case 'a':
			f.Set(reflect.ValueOf(SampleSpec{p.byte(), p.byte(), p.uint32()}))
		case 'x':
			x := p.x()
			if f.Kind() == reflect.String {
				if len(x) > 0 {
					x = x[:len(x)-1]
				}
				f.SetString(string(x))
			} else {
				f.SetBytes(x)
			}
		case '1':
			f.SetBool(true)
		case '0':
			f.SetBool(false)
		case 'm':
			b := make([]byte, p.byte())
			p.bytes(b)
			f.SetBytes(b)
		case 'v':
			u := make(ChannelVolumes, p.byte())
			for i := range u {
				u[i] = p.uint32()
			}
			f.Set(reflect.ValueOf(u))
		case 'P':
			m := make(PropList)
			p.propList(m)
			f.Set(reflect.ValueOf(m))
		case 'V':
			f.SetUint(uint64(p.uint32()))
		case 'f':
			m := make(PropList)
			p.byte() // B
			enc := p.byte()
			p.byte() // P
			p.propList(m)
			f.Set(reflect.ValueOf(FormatInfo{enc, m}))
		default:
			p.setErr(ErrProtocolError)
		}
	}
}

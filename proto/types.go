package proto

// Undefined is used by the server for "no index" and by requests that select by name.
const Undefined = 0xFFFFFFFF

type SampleSpec struct {
	Format   byte
	Channels byte
	Rate     uint32
}

type Microseconds uint64

type ChannelMap []byte

type FormatInfo struct {
	Encoding   byte
	Properties PropList
}

type PropList map[string]PropListEntry

type PropListEntry []byte

// PropListString encodes a string property, including the terminating zero byte.
func PropListString(s string) PropListEntry {
	return append([]byte(s), 0)
}

func (e PropListEntry) String() string {
	if len(e) > 0 && e[len(e)-1] == 0 {
		return string(e[:len(e)-1])
	}
	return string(e)
}

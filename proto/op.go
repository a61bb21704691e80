package proto

const (
	OpError   = 0
	OpTimeout = 1
	OpReply   = 2

	OpAuth          = 8
	OpSetClientName = 9

	OpGetServerInfo = 20
	OpGetSinkInfo   = 21
	OpSubscribe     = 35

	OpSetSinkVolume = 36
	OpSetSinkMute   = 39

	OpSubscribeEvent = 66 // server -> client
)

type RequestArgs interface{ command() uint32 }
type Reply interface{ IsReplyTo() uint32 }

type Auth struct {
	Version Version
	Cookie  []byte
}
type AuthReply struct {
	Version Version
}

type SetClientName struct {
	Props PropList
}
type SetClientNameReply struct {
	ClientIndex uint32
}

type GetServerInfo struct{}
type GetServerInfoReply struct {
	PackageName    string
	PackageVersion string
	Username       string
	Hostname       string

	DefaultSampleSpec SampleSpec
	DefaultSinkName   string
	DefaultSourceName string

	Cookie uint32

	DefaultChannelMap ChannelMap "15"
}

type GetSinkInfo struct {
	SinkIndex uint32
	SinkName  string
}
type GetSinkInfoReply struct {
	SinkIndex uint32
	SinkName  string
	Device    string
	SampleSpec
	ChannelMap         ChannelMap
	ModuleIndex        uint32
	ChannelVolumes     ChannelVolumes
	Mute               bool
	MonitorSourceIndex uint32
	MonitorSourceName  string
	Latency            Microseconds
	Driver             string
	Flags              uint32

	Properties       PropList     "13"
	RequestedLatency Microseconds "13"

	BaseVolume     Volume "15"
	State          uint32 "15"
	NumVolumeSteps uint32 "15"
	CardIndex      uint32 "15"

	Ports []struct {
		Name        string
		Description string
		Priority    uint32
		Available   uint32 "24"
	} "16"
	ActivePortName string "16"

	Formats []FormatInfo "21"
}

type Subscribe struct{ Mask SubscriptionMask }

type SetSinkVolume struct {
	SinkIndex      uint32
	SinkName       string
	ChannelVolumes ChannelVolumes
}

type SetSinkMute struct {
	SinkIndex uint32
	SinkName  string
	Mute      bool
}

func (*Auth) command() uint32          { return OpAuth }
func (*SetClientName) command() uint32 { return OpSetClientName }
func (*GetServerInfo) command() uint32 { return OpGetServerInfo }
func (*GetSinkInfo) command() uint32   { return OpGetSinkInfo }
func (*Subscribe) command() uint32     { return OpSubscribe }
func (*SetSinkVolume) command() uint32 { return OpSetSinkVolume }
func (*SetSinkMute) command() uint32   { return OpSetSinkMute }

func (*AuthReply) IsReplyTo() uint32          { return OpAuth }
func (*SetClientNameReply) IsReplyTo() uint32 { return OpSetClientName }
func (*GetServerInfoReply) IsReplyTo() uint32 { return OpGetServerInfo }
func (*GetSinkInfoReply) IsReplyTo() uint32   { return OpGetSinkInfo }

// SERVER -> CLIENT MESSAGES

type SubscribeEvent struct {
	Event SubscriptionEventType
	Index uint32
}

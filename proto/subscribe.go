package proto

import "fmt"

type SubscriptionMask uint32

const (
	SubscriptionMaskNull         SubscriptionMask = 0x0000
	SubscriptionMaskSink         SubscriptionMask = 0x0001
	SubscriptionMaskSource       SubscriptionMask = 0x0002
	SubscriptionMaskSinkInput    SubscriptionMask = 0x0004
	SubscriptionMaskSourceOutput SubscriptionMask = 0x0008
	SubscriptionMaskModule       SubscriptionMask = 0x0010
	SubscriptionMaskClient       SubscriptionMask = 0x0020
	SubscriptionMaskSampleCache  SubscriptionMask = 0x0040
	SubscriptionMaskServer       SubscriptionMask = 0x0080
	SubscriptionMaskCard         SubscriptionMask = 0x0200
	SubscriptionMaskAll          SubscriptionMask = 0x02FF
)

// SubscriptionEventType combines a facility (low bits) and an event type.
type SubscriptionEventType uint32

const (
	EventSink         SubscriptionEventType = 0x0000
	EventSource       SubscriptionEventType = 0x0001
	EventSinkInput    SubscriptionEventType = 0x0002
	EventSourceOutput SubscriptionEventType = 0x0003
	EventModule       SubscriptionEventType = 0x0004
	EventClient       SubscriptionEventType = 0x0005
	EventSampleCache  SubscriptionEventType = 0x0006
	EventServer       SubscriptionEventType = 0x0007
	EventCard         SubscriptionEventType = 0x0009
	EventFacilityMask SubscriptionEventType = 0x000F

	EventNew      SubscriptionEventType = 0x0000
	EventChange   SubscriptionEventType = 0x0010
	EventRemove   SubscriptionEventType = 0x0020
	EventTypeMask SubscriptionEventType = 0x0030
)

func (e SubscriptionEventType) GetFacility() SubscriptionEventType { return e & EventFacilityMask }
func (e SubscriptionEventType) GetType() SubscriptionEventType     { return e & EventTypeMask }

var facilityNames = map[SubscriptionEventType]string{
	EventSink:         "sink",
	EventSource:       "source",
	EventSinkInput:    "sink-input",
	EventSourceOutput: "source-output",
	EventModule:       "module",
	EventClient:       "client",
	EventSampleCache:  "sample-cache",
	EventServer:       "server",
	EventCard:         "card",
}

func (e SubscriptionEventType) String() string {
	var typ string
	switch e.GetType() {
	case EventNew:
		typ = "new"
	case EventChange:
		typ = "change"
	case EventRemove:
		typ = "remove"
	default:
		typ = "unknown"
	}
	facility, ok := facilityNames[e.GetFacility()]
	if !ok {
		facility = fmt.Sprintf("facility(%d)", uint32(e.GetFacility()))
	}
	return typ + " " + facility
}

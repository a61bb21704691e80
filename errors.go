package sinkvol

import (
	"errors"
	"fmt"

	"github.com/jfreymuth/sinkvol/paclient"
	"github.com/jfreymuth/sinkvol/proto"
)

var (
	// ErrNoActiveSink is returned by volume and mute operations while no sink is resolved.
	ErrNoActiveSink = errors.New("sinkvol: no active sink")
	// ErrConnectionLost is returned once the server connection is gone.
	ErrConnectionLost = errors.New("sinkvol: connection lost")
	ErrClosed         = errors.New("sinkvol: connection closed")
	// ErrInvalidVolume is returned for a percentage that is not a number.
	ErrInvalidVolume = errors.New("sinkvol: invalid volume")
)

// ConnectError is returned by Open when no usable connection could be established.
type ConnectError struct {
	State paclient.State
	Err   error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sinkvol: connect failed (context %v)", e.State)
	}
	return fmt.Sprintf("sinkvol: connect failed (context %v): %v", e.State, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// RequestError reports a failed exchange with the server.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return "sinkvol: " + e.Op + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }

// InvalidNotificationError describes a subscription event that was discarded.
type InvalidNotificationError struct {
	Event proto.SubscriptionEventType
	Index uint32
}

func (e *InvalidNotificationError) Error() string {
	return fmt.Sprintf("sinkvol: invalid index in %v notification", e.Event)
}

package wamd

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by session operations. StorageError lives in the
// store package alongside the code that produces it.
var (
	// ErrNotConnected fails sends made while the connection is down. Calls
	// never queue behind a disconnected transport.
	ErrNotConnected = errors.New("not connected")

	// ErrCancelled fails in-flight calls whose context was cancelled or whose
	// session was disconnected underneath them.
	ErrCancelled = errors.New("call cancelled")

	// ErrPermissionDenied reports a group-role violation. The failed call is
	// surfaced, never retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLoggedOut reports that the server invalidated this device. The
	// session cannot recover without pairing again.
	ErrLoggedOut = errors.New("device logged out")
)

// A TransportError is a network-level failure. These are generally retriable
// and handled internally by the reconnect loop; one only reaches the consumer
// when the reconnect attempt ceiling is exhausted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// A ProtocolError is a malformed or unexpected server frame. The offending
// frame is logged and dropped; the session continues.
type ProtocolError struct {
	FrameType string
	Err       error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: bad %q frame: %s", e.FrameType, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// PairingFailure enumerates the ways a pairing attempt can end short of
// success.
type PairingFailure string

const (
	PairingTimeout         PairingFailure = "timeout"
	PairingRejected        PairingFailure = "rejected"
	PairingTransportClosed PairingFailure = "transport-closed"
)

// A PairingError reports a failed pairing attempt with its failure class.
type PairingError struct {
	Reason PairingFailure
}

func (e *PairingError) Error() string {
	return "pairing failed: " + string(e.Reason)
}

package wamd

import "github.com/matheus3301/wamd/types"

// EventKind tags the events emitted to the session's registered handler.
type EventKind int

// The event kinds delivered by the session dispatcher.
const (
	EventUnknown EventKind = iota
	EventQRCode
	EventPair
	EventConnect
	EventLoggedOut
	EventContact
	EventPresence
	EventMessage
	EventChatState
	EventReceipt
	EventGroup
	EventCall
)

var eventKindNames = map[EventKind]string{
	EventUnknown:   "unknown",
	EventQRCode:    "qr_code",
	EventPair:      "pair",
	EventConnect:   "connect",
	EventLoggedOut: "logged_out",
	EventContact:   "contact",
	EventPresence:  "presence",
	EventMessage:   "message",
	EventChatState: "chat_state",
	EventReceipt:   "receipt",
	EventGroup:     "group",
	EventCall:      "call",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Connect reports a connection to the remote service being established, or
// failing to do so (based on the Error field). Pairing failures also arrive
// here, carrying the PairingError text, since they are the other condition a
// consumer must show to the human user.
type Connect struct {
	JID   string // The account JID this connection serves.
	Error string // The connection or pairing error, if any.
}

// EventPayload is the union of payloads for all event kinds. Only the field
// matching the event kind is populated.
type EventPayload struct {
	QRCode        string // QR payload to render; re-issued as codes expire.
	PairDeviceID  string // Linked-device ID assigned on successful pairing.
	Connect       Connect
	Contact       types.Contact
	Presence      types.Presence
	Message       types.Message
	ChatState     types.ChatState
	Receipt       types.Receipt
	Group         types.Group
	GroupFullSync bool // Whether Group carries a complete participant list.
	Call          types.Call
}

// HandleEventFunc receives all events for one session, in frame-arrival
// order. The dispatcher does not advance until the handler returns.
type HandleEventFunc func(EventKind, *EventPayload)

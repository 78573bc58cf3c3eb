package wamd

import (
	"fmt"

	"github.com/matheus3301/wamd/transport"
	"github.com/matheus3301/wamd/types"
)

// translateFrame turns one unsolicited server frame into zero or more
// consumer events. Frames the consumer has no use for yield an empty slice;
// malformed frames yield a ProtocolError and are dropped by the caller.
// Pairing and logout frames are routed separately by the session and never
// arrive here.
func translateFrame(f transport.Frame) ([]queuedEvent, error) {
	switch f.Type {
	case transport.TypeMessage:
		return translateMessage(f)
	case transport.TypeReceipt:
		return translateReceipt(f)
	case transport.TypePresence:
		var p types.Presence
		if err := transport.Unmarshal(f.Data, &p); err != nil {
			return nil, &ProtocolError{FrameType: f.Type, Err: err}
		}
		if p.JID == "" {
			return nil, &ProtocolError{FrameType: f.Type, Err: fmt.Errorf("missing JID")}
		}
		return []queuedEvent{{EventPresence, &EventPayload{Presence: p}}}, nil
	case transport.TypeChatState:
		var cs types.ChatState
		if err := transport.Unmarshal(f.Data, &cs); err != nil {
			return nil, &ProtocolError{FrameType: f.Type, Err: err}
		}
		return []queuedEvent{{EventChatState, &EventPayload{ChatState: cs}}}, nil
	case transport.TypeContactSync:
		return translateContacts(f)
	case transport.TypeGroupSync:
		return translateGroups(f)
	case transport.TypeCall:
		return translateCall(f)
	default:
		return nil, &ProtocolError{FrameType: f.Type, Err: fmt.Errorf("unexpected frame type")}
	}
}

func translateMessage(f transport.Frame) ([]queuedEvent, error) {
	var m types.Message
	if err := transport.Unmarshal(f.Data, &m); err != nil {
		return nil, &ProtocolError{FrameType: f.Type, Err: err}
	}
	if m.ID == "" || m.JID == "" {
		return nil, &ProtocolError{FrameType: f.Type, Err: fmt.Errorf("missing message ID or sender")}
	}

	// Plain messages with a geo URI body are location messages that lost
	// their metadata in transit; recover the coordinates.
	if m.Kind == types.MessagePlain && m.Location.IsZero() {
		if loc, ok := types.ParseGeoURI(m.Body); ok {
			m.Location = loc
		}
	}

	// A plain message with no body and no location carries nothing to show.
	if m.Kind == types.MessagePlain && m.Body == "" && m.Location.IsZero() {
		return nil, nil
	}

	return []queuedEvent{{EventMessage, &EventPayload{Message: m}}}, nil
}

func translateReceipt(f transport.Frame) ([]queuedEvent, error) {
	var r types.Receipt
	if err := transport.Unmarshal(f.Data, &r); err != nil {
		return nil, &ProtocolError{FrameType: f.Type, Err: err}
	}
	// Receipts with nothing to mark are dropped without error.
	if len(r.MessageIDs) == 0 {
		return nil, nil
	}
	return []queuedEvent{{EventReceipt, &EventPayload{Receipt: r}}}, nil
}

// translateContacts fans a contact-sync batch out into one event per
// contact. Contacts with no human-readable name are not surfaced.
func translateContacts(f transport.Frame) ([]queuedEvent, error) {
	var batch transport.ContactsResult
	if err := transport.Unmarshal(f.Data, &batch); err != nil {
		return nil, &ProtocolError{FrameType: f.Type, Err: err}
	}
	var out []queuedEvent
	for _, c := range batch.Contacts {
		if c.JID == "" || c.Name == "" {
			continue
		}
		out = append(out, queuedEvent{EventContact, &EventPayload{Contact: c}})
	}
	return out, nil
}

func translateGroups(f transport.Frame) ([]queuedEvent, error) {
	var gs transport.GroupsResult
	if err := transport.Unmarshal(f.Data, &gs); err != nil {
		return nil, &ProtocolError{FrameType: f.Type, Err: err}
	}
	var out []queuedEvent
	for _, g := range gs.Groups {
		if g.JID == "" {
			continue
		}
		out = append(out, queuedEvent{EventGroup, &EventPayload{
			Group:         g,
			GroupFullSync: gs.FullSync,
		}})
	}
	return out, nil
}

// translateCall maps call frames onto the notification-level call states:
// an offer is an incoming call, a terminate after no pickup is a missed one.
func translateCall(f transport.Frame) ([]queuedEvent, error) {
	var ce transport.CallEvent
	if err := transport.Unmarshal(f.Data, &ce); err != nil {
		return nil, &ProtocolError{FrameType: f.Type, Err: err}
	}
	if ce.From == "" {
		return nil, &ProtocolError{FrameType: f.Type, Err: fmt.Errorf("missing caller")}
	}

	call := types.Call{JID: ce.From, Timestamp: ce.Timestamp}
	switch ce.State {
	case "offer":
		call.State = types.CallIncoming
	case "terminate":
		// Only unanswered terminations are interesting to the consumer.
		if ce.Reason != "" && ce.Reason != "timeout" {
			return nil, nil
		}
		call.State = types.CallMissed
	default:
		return nil, &ProtocolError{FrameType: f.Type, Err: fmt.Errorf("unknown call state %q", ce.State)}
	}

	return []queuedEvent{{EventCall, &EventPayload{Call: call}}}, nil
}

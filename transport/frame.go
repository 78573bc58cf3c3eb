// Package transport defines the frame layer carried between the core and the
// remote service, along with the websocket implementation used in production.
// Frame payload shapes are internal to the core; the public contract is the
// call/event surface of the root package.
package transport

import (
	"encoding/json"
	"fmt"
)

// Frame types sent by the client. Requests always carry a frame ID; the
// server echoes it back on the matching TypeResult or TypeError frame.
const (
	TypeAuth             = "auth"
	TypePairStart        = "pair:start"
	TypePairCode         = "pair:code"
	TypeMessage          = "message"
	TypeReceipt          = "receipt"
	TypePresence         = "presence"
	TypeChatState        = "chat_state"
	TypeContacts         = "contacts"
	TypeContactFind      = "contact:find"
	TypeGroups           = "groups"
	TypeGroupCreate      = "group:create"
	TypeGroupLeave       = "group:leave"
	TypeGroupName        = "group:name"
	TypeGroupTopic       = "group:topic"
	TypeGroupAffiliation = "group:affiliation"
	TypeAvatarGet        = "avatar:get"
	TypeAvatarSet        = "avatar:set"
	TypeHistory          = "history"
	TypeLogout           = "logout"
)

// Frame types sent by the server. Frames without an ID are events; frames
// with an ID are responses to a pending request.
const (
	TypeResult      = "result"
	TypeError       = "error"
	TypePairRef     = "pair:ref"
	TypePairSuccess = "pair:success"
	TypePairError   = "pair:error"
	TypeContactSync = "contact"
	TypeGroupSync   = "group"
	TypeCall        = "call"
	TypeLoggedOut   = "logged_out"
)

// Well-known error codes carried on TypeError frames.
const (
	CodePermissionDenied = "permission-denied"
	CodeNotAuthorized    = "not-authorized"
	CodePairRejected     = "pair-rejected"
	CodeTimeout          = "timeout"
)

// A Frame is the unit of exchange on the wire. Data holds a type-specific
// payload; Error is set only on TypeError frames.
type Frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *FrameError     `json:"error,omitempty"`
}

// IsEvent reports whether the frame is an unsolicited server event rather
// than a response to a pending request.
func (f Frame) IsEvent() bool {
	return f.ID == "" && f.Type != TypeResult && f.Type != TypeError
}

// A FrameError is the structured error payload of a TypeError frame.
type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *FrameError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Marshal encodes a payload into a frame's Data field.
func Marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame payload: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a frame's Data field into the given payload pointer.
func Unmarshal(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode frame payload: %w", err)
	}
	return nil
}

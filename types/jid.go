package types

import (
	"fmt"
	"strings"
)

// Server suffixes for the JID namespaces recognized by the core.
const (
	DefaultUserServer = "s.whatsapp.net"
	GroupServer       = "g.us"
	BroadcastServer   = "broadcast"
)

// A JID identifies a user, group or broadcast list. JIDs are kept as plain
// strings of the form "user@server" across the public API; this type exists
// for the handful of places that need to inspect the parts.
type JID struct {
	User   string
	Server string
}

// ParseJID splits a raw JID string into its user and server parts. Device
// suffixes (":<n>") and agent suffixes (".<n>") on the user part are dropped,
// so the result is always the bare, non-device-specific form.
func ParseJID(raw string) (JID, error) {
	user, server, found := strings.Cut(raw, "@")
	if !found || user == "" || server == "" {
		return JID{}, fmt.Errorf("malformed JID %q", raw)
	}
	if i := strings.IndexAny(user, ":."); i >= 0 {
		user = user[:i]
	}
	return JID{User: user, Server: server}, nil
}

// String returns the canonical "user@server" form.
func (j JID) String() string {
	return j.User + "@" + j.Server
}

// IsEmpty reports whether the JID has no user or server part.
func (j JID) IsEmpty() bool {
	return j.User == "" && j.Server == ""
}

// IsGroup reports whether the JID identifies a group-chat.
func (j JID) IsGroup() bool {
	return j.Server == GroupServer
}

// NewUserJID returns the canonical user JID for a bare phone number.
func NewUserJID(phone string) string {
	return strings.TrimPrefix(phone, "+") + "@" + DefaultUserServer
}

package types

// A Contact represents any entity that can be messaged directly: a person, a
// business or a bot, but never a group-chat. Contacts are only ever updated,
// never removed, for the lifetime of a session.
type Contact struct {
	JID  string // The canonical user JID for this contact.
	Name string // The human-readable name, best-effort resolved.
}

// An Avatar is a small profile image set for a Contact or Group. The ID is
// stable for unchanged pictures and is the unit of consumer-side caching; the
// URL may rotate for the same ID.
type Avatar struct {
	ID  string
	URL string
}

// PresenceKind is a contact's general activity state. Three states are
// distinguished deliberately; a boolean availability flag is not sufficient
// for consumers that map to richer presence models.
type PresenceKind int

const (
	PresenceUnknown PresenceKind = iota
	PresenceAvailable
	PresenceAway
	PresenceUnavailable
)

// A Presence is a contact's activity state across all chats, refreshed as the
// remote service observes the contact's clients.
type Presence struct {
	JID           string
	Kind          PresenceKind
	LastSeen      int64  // Unix seconds of last observed activity, if shared.
	StatusMessage string // Free-form status text, if any.
}

// ChatStateKind is a contact's activity within one specific chat.
type ChatStateKind int

const (
	ChatStateUnknown ChatStateKind = iota
	ChatStateComposing
	ChatStatePaused
)

// A ChatState reports composing/paused activity for one chat, separate from
// the contact's overall Presence.
type ChatState struct {
	Kind     ChatStateKind
	JID      string
	GroupJID string
}

// CallState is the observed state of a voice/video call. Call support covers
// notification only; media is not handled.
type CallState int

const (
	CallUnknown CallState = iota
	CallIncoming
	CallMissed
)

// A Call notifies of an incoming or missed call from a contact.
type Call struct {
	State     CallState
	JID       string
	Timestamp int64
}

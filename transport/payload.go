package transport

import "github.com/matheus3301/wamd/types"

// AuthRequest authenticates an existing paired device on a fresh connection.
// The signature covers account + device ID with the device identity key.
type AuthRequest struct {
	Account        string `json:"account"`
	DeviceID       string `json:"device_id"`
	RegistrationID uint32 `json:"registration_id"`
	Signature      []byte `json:"signature"`
}

// AuthResult acknowledges a successful authentication handshake.
type AuthResult struct {
	JID string `json:"jid"`
}

// PairStartRequest begins a QR pairing flow for a new device.
type PairStartRequest struct {
	PublicKey []byte `json:"public_key"`
}

// PairRef is one server-issued pairing reference. The client composes it with
// its public key into the QR payload shown to the user; the server re-issues
// refs as previous ones expire.
type PairRef struct {
	Ref string `json:"ref"`
	TTL int    `json:"ttl"` // Remaining validity in seconds.
}

// PairCodeRequest begins a phone-number pairing flow for a new device.
type PairCodeRequest struct {
	Phone     string `json:"phone"`
	PublicKey []byte `json:"public_key"`
}

// PairCodeResult carries the one-time code the user enters on their primary
// device. Exactly one is issued per pairing attempt.
type PairCodeResult struct {
	Code string `json:"code"`
}

// PairSuccess confirms pairing and assigns the linked-device identity.
type PairSuccess struct {
	Account        string `json:"account"`
	DeviceID       string `json:"device_id"`
	RegistrationID uint32 `json:"registration_id"`
}

// MessageRequest is an outbound message submission. Chat is the destination
// JID (user or group).
type MessageRequest struct {
	Chat    string        `json:"chat"`
	Message types.Message `json:"message"`
}

// ReceiptRequest marks messages in a chat as delivered or read.
type ReceiptRequest struct {
	Receipt types.Receipt `json:"receipt"`
}

// PresenceRequest publishes our own activity state and optional status text.
type PresenceRequest struct {
	Kind          int    `json:"kind"`
	StatusMessage string `json:"status_message,omitempty"`
}

// ChatStateRequest publishes composing/paused activity for one chat.
type ChatStateRequest struct {
	State types.ChatState `json:"state"`
}

// ContactsRequest fetches the contact roster; Refresh forces the server to
// rebuild its projection before replying.
type ContactsRequest struct {
	Refresh bool `json:"refresh"`
}

// ContactsResult is the roster reply, also the payload of unsolicited
// contact-sync event frames (where it may be a partial batch).
type ContactsResult struct {
	Contacts []types.Contact `json:"contacts"`
}

// ContactFindRequest checks whether a phone number is registered.
type ContactFindRequest struct {
	Phone string `json:"phone"`
}

// ContactFindResult carries the registered JID, empty if not found.
type ContactFindResult struct {
	JID string `json:"jid"`
}

// GroupsResult lists all joined groups with full participant sets. Also the
// payload of group-sync event frames, where FullSync distinguishes a complete
// participant replace from an incremental patch.
type GroupsResult struct {
	Groups   []types.Group `json:"groups"`
	FullSync bool          `json:"full_sync,omitempty"`
}

// GroupCreateRequest creates a new group with the given participants.
type GroupCreateRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

// GroupTargetRequest addresses an operation at one group (leave, rename,
// topic and affiliation changes).
type GroupTargetRequest struct {
	GroupJID    string `json:"group_jid"`
	Name        string `json:"name,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Participant string `json:"participant,omitempty"`
	Change      string `json:"change,omitempty"` // add | remove | promote | demote
}

// AvatarGetRequest fetches avatar metadata for a contact or group. ExistingID
// lets the server short-circuit when the caller's cached copy is current.
type AvatarGetRequest struct {
	JID        string `json:"jid"`
	ExistingID string `json:"existing_id,omitempty"`
}

// AvatarGetResult is the avatar reply. NotSet is the explicit "no avatar"
// outcome, distinct from a transient failure (which arrives as TypeError).
type AvatarGetResult struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url,omitempty"`
	NotSet bool   `json:"not_set,omitempty"`
}

// AvatarSetRequest replaces the avatar for a contact, group, or (with an
// empty JID) our own profile. Empty data removes the avatar.
type AvatarSetRequest struct {
	JID  string `json:"jid"`
	Data []byte `json:"data,omitempty"`
}

// AvatarSetResult carries the new avatar ID after a successful set.
type AvatarSetResult struct {
	ID string `json:"id"`
}

// HistoryRequest asks for a backfill of messages older than the anchor.
type HistoryRequest struct {
	Chat            string `json:"chat"`
	AnchorID        string `json:"anchor_id"`
	AnchorTimestamp int64  `json:"anchor_timestamp"`
	AnchorIsCarbon  bool   `json:"anchor_is_carbon"`
	Count           int    `json:"count"`
}

// CallEvent is the payload of inbound call frames.
type CallEvent struct {
	State     string `json:"state"` // offer | terminate
	Reason    string `json:"reason,omitempty"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
}

// LoggedOutEvent is the payload of the terminal logged_out frame.
type LoggedOutEvent struct {
	Reason string `json:"reason,omitempty"`
}

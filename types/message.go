package types

// MessageKind is the concrete kind of a message payload.
type MessageKind int

const (
	MessagePlain MessageKind = iota
	MessageAttachment
	MessageEdit
	MessageRevoke
	MessageReaction
)

// A Message is one unit of bidirectional communication: a text message, a
// file attachment, an edit or retraction of an earlier message, or an emoji
// reaction. Kinds re-use fields where semantics overlap; see field comments.
// Messages are ephemeral: the core hands ownership to the consumer on
// dispatch and keeps no copy.
type Message struct {
	Kind        MessageKind
	ID          string // Unique message ID within its chat.
	JID         string // Sender JID; for carbons of direct chats, the remote chat JID.
	GroupJID    string // Group JID when sent in a group-chat.
	OriginJID   string // For reactions, replies and moderation, the original author's JID.
	Body        string // Plain-text body; caption for attachment messages.
	Timestamp   int64  // Unix seconds the message was created.
	IsCarbon    bool   // Whether this message was sent by the session's own user.
	IsForwarded bool
	ReplyID     string // ID of the message this one replies to, if any.
	ReplyBody   string // Quoted body of the replied-to message, if any.
	Attachments []Attachment
	Preview     Preview
	Location    Location
	MentionJIDs []string
	Receipts    []Receipt // Pre-set receipt state, carried on backfilled messages.
	Reactions   []Message // Reactions, carried on backfilled messages.
}

// An Attachment is binary data (image, video, document, vCard) carried by a
// message. The envelope owns the data for its lifetime.
type Attachment struct {
	MIME     string
	Filename string
	Caption  string
	Data     []byte
}

// A Preview is a short inline description for a URL found in a message body.
type Preview struct {
	URL         string
	Title       string
	Description string
	Thumbnail   []byte
}

// ReceiptKind distinguishes delivery from presentation receipts.
type ReceiptKind int

const (
	ReceiptUnknown ReceiptKind = iota
	ReceiptDelivered
	ReceiptRead
)

// A Receipt marks one or more messages in a single chat as delivered or read.
type Receipt struct {
	Kind       ReceiptKind
	MessageIDs []string
	JID        string // The receipting user.
	GroupJID   string // Set when the receipt concerns a group-chat.
	Timestamp  int64
	IsCarbon   bool // Whether the receipt echoes our own user's activity.
}

package wamd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/wamd/transport"
	"github.com/matheus3301/wamd/types"
)

// Default page size for history backfills when the caller passes no count.
const defaultHistoryCount = 50

// GenerateMessageID returns a fresh message ID in the uppercase-hex form the
// service expects. Callers that need to know an outbound message's ID before
// sending (for receipts or edits) generate it here and set it on the message.
func GenerateMessageID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// SendMessage delivers a message to the given chat JID (user or group).
// Messages without an ID are assigned one; location messages with no body get
// a geo URI body so text-only recipients still see the coordinates.
func (s *Session) SendMessage(ctx context.Context, chat string, msg types.Message) (string, error) {
	if chat == "" {
		return "", fmt.Errorf("cannot send message without a destination")
	}
	if msg.ID == "" {
		msg.ID = GenerateMessageID()
	}
	if msg.Body == "" && !msg.Location.IsZero() {
		msg.Body = msg.Location.URI()
	}
	_, err := s.conn.request(ctx, transport.TypeMessage, transport.MessageRequest{
		Chat:    chat,
		Message: msg,
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// SendReceipt marks the given messages as delivered or read. Receipts with no
// message IDs are dropped without a round trip.
func (s *Session) SendReceipt(ctx context.Context, r types.Receipt) error {
	if len(r.MessageIDs) == 0 {
		return nil
	}
	_, err := s.conn.request(ctx, transport.TypeReceipt, transport.ReceiptRequest{Receipt: r})
	return err
}

// SendPresence publishes our own activity state with an optional status
// message. The presence refresh loop tracks the last published kind so
// subscriptions stay warm only while we are available.
func (s *Session) SendPresence(ctx context.Context, kind types.PresenceKind, statusMessage string) error {
	_, err := s.conn.request(ctx, transport.TypePresence, transport.PresenceRequest{
		Kind:          int(kind),
		StatusMessage: statusMessage,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	ch := s.presenceCh
	s.mu.Unlock()
	if ch != nil {
		select {
		case ch <- kind:
		default:
		}
	}
	return nil
}

// SendChatState publishes composing or paused activity for one chat.
func (s *Session) SendChatState(ctx context.Context, cs types.ChatState) error {
	if cs.JID == "" {
		return fmt.Errorf("cannot send chat state without a chat")
	}
	_, err := s.conn.request(ctx, transport.TypeChatState, transport.ChatStateRequest{State: cs})
	return err
}

// GetContacts fetches the contact roster, folding it into the cache on the
// way through. Refresh forces the server to rebuild its projection first.
func (s *Session) GetContacts(ctx context.Context, refresh bool) ([]types.Contact, error) {
	f, err := s.conn.request(ctx, transport.TypeContacts, transport.ContactsRequest{Refresh: refresh})
	if err != nil {
		return nil, err
	}
	var result transport.ContactsResult
	if err := transport.Unmarshal(f.Data, &result); err != nil {
		return nil, &ProtocolError{FrameType: transport.TypeContacts, Err: err}
	}
	s.roster.UpsertContacts(result.Contacts)
	return result.Contacts, nil
}

// FindContact resolves a phone number to a registered JID. The empty string
// means the number is not on the service; that is not an error.
func (s *Session) FindContact(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("cannot look up an empty phone number")
	}
	f, err := s.conn.request(ctx, transport.TypeContactFind, transport.ContactFindRequest{Phone: phone})
	if err != nil {
		return "", err
	}
	var result transport.ContactFindResult
	if err := transport.Unmarshal(f.Data, &result); err != nil {
		return "", &ProtocolError{FrameType: transport.TypeContactFind, Err: err}
	}
	return result.JID, nil
}

// GetGroups fetches all joined groups with full participant sets and replaces
// the cached entries. Concurrent callers share one in-flight fetch.
func (s *Session) GetGroups(ctx context.Context) ([]types.Group, error) {
	v, err, _ := s.groupFetch.Do("groups", func() (any, error) {
		f, err := s.conn.request(ctx, transport.TypeGroups, struct{}{})
		if err != nil {
			return nil, err
		}
		var result transport.GroupsResult
		if err := transport.Unmarshal(f.Data, &result); err != nil {
			return nil, &ProtocolError{FrameType: transport.TypeGroups, Err: err}
		}
		for _, g := range result.Groups {
			s.roster.ApplyGroup(g, true)
		}
		return result.Groups, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Group), nil
}

// CreateGroup creates a group with the given name and initial participants
// and returns it as the server sees it.
func (s *Session) CreateGroup(ctx context.Context, name string, participants []string) (types.Group, error) {
	if name == "" {
		return types.Group{}, fmt.Errorf("cannot create a group without a name")
	}
	f, err := s.conn.request(ctx, transport.TypeGroupCreate, transport.GroupCreateRequest{
		Name:         name,
		Participants: participants,
	})
	if err != nil {
		return types.Group{}, err
	}
	var g types.Group
	if err := transport.Unmarshal(f.Data, &g); err != nil {
		return types.Group{}, &ProtocolError{FrameType: transport.TypeGroupCreate, Err: err}
	}
	s.roster.ApplyGroup(g, true)
	return g, nil
}

// LeaveGroup leaves the given group. The cached entry is kept until the
// server's own group sync removes it.
func (s *Session) LeaveGroup(ctx context.Context, groupJID string) error {
	_, err := s.conn.request(ctx, transport.TypeGroupLeave, transport.GroupTargetRequest{GroupJID: groupJID})
	return err
}

// SetGroupName renames the given group.
func (s *Session) SetGroupName(ctx context.Context, groupJID, name string) error {
	_, err := s.conn.request(ctx, transport.TypeGroupName, transport.GroupTargetRequest{
		GroupJID: groupJID,
		Name:     name,
	})
	return err
}

// SetGroupTopic changes the given group's topic.
func (s *Session) SetGroupTopic(ctx context.Context, groupJID, topic string) error {
	_, err := s.conn.request(ctx, transport.TypeGroupTopic, transport.GroupTargetRequest{
		GroupJID: groupJID,
		Topic:    topic,
	})
	return err
}

// SetAffiliation moves a participant to the target affiliation. The change
// verb is resolved against cached group state: unknown participants are
// added, known ones promoted or demoted, and a participant already at the
// target affiliation makes no round trip at all.
func (s *Session) SetAffiliation(ctx context.Context, groupJID, participantJID string, target types.Affiliation) error {
	if groupJID == "" || participantJID == "" {
		return fmt.Errorf("cannot change affiliation without a group and participant")
	}
	change := s.roster.affiliationChange(groupJID, participantJID, target)
	if change == "" {
		return nil
	}
	_, err := s.conn.request(ctx, transport.TypeGroupAffiliation, transport.GroupTargetRequest{
		GroupJID:    groupJID,
		Participant: participantJID,
		Change:      change,
	})
	return err
}

// RemoveParticipant removes a participant from the given group.
func (s *Session) RemoveParticipant(ctx context.Context, groupJID, participantJID string) error {
	if groupJID == "" || participantJID == "" {
		return fmt.Errorf("cannot remove a participant without a group and participant")
	}
	_, err := s.conn.request(ctx, transport.TypeGroupAffiliation, transport.GroupTargetRequest{
		GroupJID:    groupJID,
		Participant: participantJID,
		Change:      participantChangeRemove,
	})
	return err
}

// GetAvatar fetches avatar metadata for a contact or group. A nil Avatar with
// a nil error is the definitive "no avatar set" outcome; transient failures
// return an error instead, so callers can tell the two apart. ExistingID lets
// the server answer cheaply when the caller's cached copy is still current.
func (s *Session) GetAvatar(ctx context.Context, jid, existingID string) (*types.Avatar, error) {
	if jid == "" {
		return nil, fmt.Errorf("cannot fetch an avatar without a JID")
	}
	f, err := s.conn.request(ctx, transport.TypeAvatarGet, transport.AvatarGetRequest{
		JID:        jid,
		ExistingID: existingID,
	})
	if err != nil {
		return nil, err
	}
	var result transport.AvatarGetResult
	if err := transport.Unmarshal(f.Data, &result); err != nil {
		return nil, &ProtocolError{FrameType: transport.TypeAvatarGet, Err: err}
	}
	if result.NotSet {
		return nil, nil
	}
	return &types.Avatar{ID: result.ID, URL: result.URL}, nil
}

// SetAvatar replaces the avatar for a group or, with an empty JID, our own
// profile. Empty data removes the avatar. Returns the new avatar ID.
func (s *Session) SetAvatar(ctx context.Context, jid string, data []byte) (string, error) {
	f, err := s.conn.request(ctx, transport.TypeAvatarSet, transport.AvatarSetRequest{
		JID:  jid,
		Data: data,
	})
	if err != nil {
		return "", err
	}
	var result transport.AvatarSetResult
	if err := transport.Unmarshal(f.Data, &result); err != nil {
		return "", &ProtocolError{FrameType: transport.TypeAvatarSet, Err: err}
	}
	return result.ID, nil
}

// RequestMessageHistory asks for a backfill of messages older than the
// anchor; results arrive asynchronously as ordinary message events. Without
// an anchor ID there is nothing to anchor the page on, so the call is a
// no-op rather than an unbounded fetch.
func (s *Session) RequestMessageHistory(ctx context.Context, chat string, anchor types.Message, count int) error {
	if anchor.ID == "" {
		return nil
	}
	if chat == "" {
		return fmt.Errorf("cannot request history without a chat")
	}
	if count <= 0 {
		count = defaultHistoryCount
	}
	_, err := s.conn.request(ctx, transport.TypeHistory, transport.HistoryRequest{
		Chat:            chat,
		AnchorID:        anchor.ID,
		AnchorTimestamp: anchor.Timestamp,
		AnchorIsCarbon:  anchor.IsCarbon,
		Count:           count,
	})
	return err
}

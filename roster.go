package wamd

import (
	"sync"

	"github.com/matheus3301/wamd/types"
)

// Participant change verbs understood by the group-affiliation operation.
const (
	participantChangeAdd     = "add"
	participantChangeRemove  = "remove"
	participantChangePromote = "promote"
	participantChangeDemote  = "demote"
)

// Roster is the in-memory projection of contact and group metadata for one
// session. It is populated lazily and refreshed by inbound sync events;
// entries are never evicted for the session's lifetime. All reads return
// copies, so holders never observe concurrent mutation.
type Roster struct {
	mu       sync.RWMutex
	contacts map[string]types.Contact
	groups   map[string]types.Group
}

func newRoster() *Roster {
	return &Roster{
		contacts: make(map[string]types.Contact),
		groups:   make(map[string]types.Group),
	}
}

// UpsertContact records or updates a contact. Applying the same contact
// twice leaves the roster unchanged; an empty inbound name never clobbers a
// known one.
func (r *Roster) UpsertContact(c types.Contact) {
	if c.JID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.contacts[c.JID]
	if ok && c.Name == "" {
		c.Name = prev.Name
	}
	r.contacts[c.JID] = c
}

// UpsertContacts applies a contact-sync batch.
func (r *Roster) UpsertContacts(batch []types.Contact) {
	for _, c := range batch {
		r.UpsertContact(c)
	}
}

// Contact returns a snapshot of the contact, if known.
func (r *Roster) Contact(jid string) (types.Contact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[jid]
	return c, ok
}

// Contacts returns a snapshot of all known contacts.
func (r *Roster) Contacts() []types.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, c)
	}
	return out
}

// ApplyGroup merges a group event into the cache. A full sync replaces the
// participant list wholesale; a partial event patches the populated fields
// and applies per-participant actions. In both cases the participant set
// never holds duplicate JIDs.
func (r *Roster) ApplyGroup(g types.Group, full bool) {
	if g.JID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if full {
		g.Participants = dedupeParticipants(g.Participants)
		r.groups[g.JID] = g
		return
	}

	cur, ok := r.groups[g.JID]
	if !ok {
		cur = types.Group{JID: g.JID}
	}
	if g.Name != "" {
		cur.Name = g.Name
	}
	if g.Subject != (types.GroupSubject{}) {
		cur.Subject = g.Subject
	}
	if g.Nickname != "" {
		cur.Nickname = g.Nickname
	}
	for _, p := range g.Participants {
		cur.Participants = patchParticipant(cur.Participants, p)
	}
	r.groups[g.JID] = cur
}

// Group returns a deep snapshot of the group, if known.
func (r *Roster) Group(jid string) (types.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[jid]
	if !ok {
		return types.Group{}, false
	}
	g.Participants = append([]types.GroupParticipant(nil), g.Participants...)
	return g, true
}

// Groups returns a deep snapshot of all known groups.
func (r *Roster) Groups() []types.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Group, 0, len(r.groups))
	for _, g := range r.groups {
		g.Participants = append([]types.GroupParticipant(nil), g.Participants...)
		out = append(out, g)
	}
	return out
}

// affiliationChange resolves the participant change verb needed to move a
// group member to the target affiliation, based on cached state: unknown
// participants are added, known ones promoted or demoted. Returns "" when
// the cache already shows the target affiliation.
func (r *Roster) affiliationChange(groupJID, participantJID string, target types.Affiliation) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[groupJID]
	if ok {
		for _, p := range g.Participants {
			if p.JID != participantJID {
				continue
			}
			switch {
			case p.Affiliation == target:
				return ""
			case target > p.Affiliation:
				return participantChangePromote
			default:
				return participantChangeDemote
			}
		}
	}
	return participantChangeAdd
}

// dedupeParticipants drops empty and duplicate JIDs into a fresh slice. The
// cache must never alias an event payload's backing array: payloads are
// delivered to the consumer and later patches mutate cached state in place.
func dedupeParticipants(in []types.GroupParticipant) []types.GroupParticipant {
	seen := make(map[string]bool, len(in))
	out := make([]types.GroupParticipant, 0, len(in))
	for _, p := range in {
		if p.JID == "" || seen[p.JID] {
			continue
		}
		seen[p.JID] = true
		out = append(out, p)
	}
	return out
}

func patchParticipant(list []types.GroupParticipant, p types.GroupParticipant) []types.GroupParticipant {
	idx := -1
	for i, cur := range list {
		if cur.JID == p.JID {
			idx = i
			break
		}
	}

	switch p.Action {
	case types.ParticipantActionRemove:
		if idx >= 0 {
			return append(list[:idx], list[idx+1:]...)
		}
		return list
	case types.ParticipantActionUpdate:
		if idx >= 0 {
			list[idx].Affiliation = p.Affiliation
			return list
		}
		// Update for an unknown participant degrades to an add.
		return append(list, p)
	default: // add
		if idx >= 0 {
			return list
		}
		return append(list, p)
	}
}

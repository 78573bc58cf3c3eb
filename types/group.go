package types

// Affiliation is the privilege tier of a participant within a group.
type Affiliation int

const (
	AffiliationMember Affiliation = iota // Normal member, no management rights.
	AffiliationAdmin                     // Can perform some management operations.
	AffiliationOwner                     // Full control, including destroying the group.
)

// ParticipantAction is the change a group event requests for one participant.
type ParticipantAction int

const (
	ParticipantActionAdd    ParticipantAction = iota // Add participant to the group.
	ParticipantActionUpdate                          // Update affiliation of an existing participant.
	ParticipantActionRemove                          // Remove participant from the group.
)

// A GroupParticipant is one member entry of a group's participant list.
type GroupParticipant struct {
	JID         string
	Affiliation Affiliation
	Action      ParticipantAction
}

// A GroupSubject is the user-set group description plus its provenance.
type GroupSubject struct {
	Subject string
	SetAt   int64  // Unix seconds the subject was set.
	SetBy   string // JID of the participant that set it.
}

// A Group is a named many-to-many chat. All fields other than the JID are
// optional: group events may carry partial updates against previously known
// state, in which case only the populated fields are meaningful.
type Group struct {
	JID          string
	Name         string
	Subject      GroupSubject
	Nickname     string // Our own display name within this group.
	Participants []GroupParticipant
}

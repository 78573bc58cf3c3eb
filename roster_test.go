package wamd

import (
	"testing"

	"github.com/matheus3301/wamd/types"
)

func TestUpsertContactIdempotent(t *testing.T) {
	r := newRoster()
	c := types.Contact{JID: "alice@s.whatsapp.net", Name: "Alice"}

	r.UpsertContact(c)
	r.UpsertContact(c)

	got := r.Contacts()
	if len(got) != 1 {
		t.Fatalf("contacts = %d, want 1", len(got))
	}
	if got[0] != c {
		t.Errorf("contact = %+v, want %+v", got[0], c)
	}
}

func TestUpsertContactKeepsKnownName(t *testing.T) {
	r := newRoster()
	r.UpsertContact(types.Contact{JID: "alice@s.whatsapp.net", Name: "Alice"})
	r.UpsertContact(types.Contact{JID: "alice@s.whatsapp.net"})

	c, ok := r.Contact("alice@s.whatsapp.net")
	if !ok {
		t.Fatal("contact lost")
	}
	if c.Name != "Alice" {
		t.Errorf("name = %q, want Alice (empty inbound name must not clobber)", c.Name)
	}
}

func TestApplyGroupFullSyncReplacesParticipants(t *testing.T) {
	r := newRoster()
	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net"},
			{JID: "b@s.whatsapp.net"},
		},
	}, true)

	// A later full sync with a different set replaces, never merges.
	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "c@s.whatsapp.net"},
		},
	}, true)

	g, ok := r.Group("g1@g.us")
	if !ok {
		t.Fatal("group lost")
	}
	if len(g.Participants) != 1 || g.Participants[0].JID != "c@s.whatsapp.net" {
		t.Errorf("participants = %+v, want only c", g.Participants)
	}
}

func TestApplyGroupFullSyncDedupes(t *testing.T) {
	r := newRoster()
	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net"},
			{JID: "a@s.whatsapp.net", Affiliation: types.AffiliationAdmin},
		},
	}, true)

	g, _ := r.Group("g1@g.us")
	if len(g.Participants) != 1 {
		t.Errorf("participants = %d, want 1 (no duplicate JIDs)", len(g.Participants))
	}
}

func TestApplyGroupFullSyncLeavesPayloadIntact(t *testing.T) {
	r := newRoster()
	participants := []types.GroupParticipant{
		{JID: "a@s.whatsapp.net"},
		{JID: "a@s.whatsapp.net"},
		{JID: "b@s.whatsapp.net"},
	}
	r.ApplyGroup(types.Group{JID: "g1@g.us", Participants: participants}, true)

	// The cache dedupes into its own copy; the applied payload, which the
	// event handler still holds, keeps its original contents.
	want := []string{"a@s.whatsapp.net", "a@s.whatsapp.net", "b@s.whatsapp.net"}
	if len(participants) != len(want) {
		t.Fatalf("payload length = %d, want %d", len(participants), len(want))
	}
	for i, jid := range want {
		if participants[i].JID != jid {
			t.Errorf("payload[%d] = %q, want %q", i, participants[i].JID, jid)
		}
	}

	g, _ := r.Group("g1@g.us")
	if len(g.Participants) != 2 {
		t.Errorf("cached participants = %d, want 2", len(g.Participants))
	}
}

func TestPatchDoesNotMutateEarlierPayload(t *testing.T) {
	r := newRoster()
	full := types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net", Affiliation: types.AffiliationMember},
			{JID: "b@s.whatsapp.net", Affiliation: types.AffiliationMember},
		},
	}
	r.ApplyGroup(full, true)

	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net", Action: types.ParticipantActionUpdate, Affiliation: types.AffiliationAdmin},
			{JID: "b@s.whatsapp.net", Action: types.ParticipantActionRemove},
		},
	}, false)

	// The full-sync payload delivered earlier must not change under later
	// patches.
	if full.Participants[0].Affiliation != types.AffiliationMember {
		t.Error("patch mutated a previously applied payload's affiliation")
	}
	if len(full.Participants) != 2 || full.Participants[1].JID != "b@s.whatsapp.net" {
		t.Errorf("payload participants = %+v, want original pair", full.Participants)
	}

	g, _ := r.Group("g1@g.us")
	if len(g.Participants) != 1 || g.Participants[0].Affiliation != types.AffiliationAdmin {
		t.Errorf("cached participants = %+v, want a as admin only", g.Participants)
	}
}

func TestApplyGroupPartialPatches(t *testing.T) {
	r := newRoster()
	r.ApplyGroup(types.Group{
		JID:  "g1@g.us",
		Name: "Team",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net"},
			{JID: "b@s.whatsapp.net"},
		},
	}, true)

	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "b@s.whatsapp.net", Action: types.ParticipantActionRemove},
			{JID: "a@s.whatsapp.net", Action: types.ParticipantActionUpdate, Affiliation: types.AffiliationAdmin},
			{JID: "c@s.whatsapp.net", Action: types.ParticipantActionAdd},
		},
	}, false)

	g, _ := r.Group("g1@g.us")
	if g.Name != "Team" {
		t.Errorf("name = %q, want Team (partial event must not clear it)", g.Name)
	}
	if len(g.Participants) != 2 {
		t.Fatalf("participants = %+v, want a and c", g.Participants)
	}
	for _, p := range g.Participants {
		switch p.JID {
		case "a@s.whatsapp.net":
			if p.Affiliation != types.AffiliationAdmin {
				t.Errorf("a affiliation = %v, want admin", p.Affiliation)
			}
		case "c@s.whatsapp.net":
		default:
			t.Errorf("unexpected participant %q", p.JID)
		}
	}
}

func TestApplyGroupPartialIdempotent(t *testing.T) {
	r := newRoster()
	patch := types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "a@s.whatsapp.net", Action: types.ParticipantActionAdd},
		},
	}
	r.ApplyGroup(patch, false)
	r.ApplyGroup(patch, false)

	g, _ := r.Group("g1@g.us")
	if len(g.Participants) != 1 {
		t.Errorf("participants = %d, want 1 after duplicate add", len(g.Participants))
	}
}

func TestGroupSnapshotIsolation(t *testing.T) {
	r := newRoster()
	r.ApplyGroup(types.Group{
		JID:          "g1@g.us",
		Participants: []types.GroupParticipant{{JID: "a@s.whatsapp.net"}},
	}, true)

	snap, _ := r.Group("g1@g.us")
	snap.Participants[0].JID = "mutated@s.whatsapp.net"

	g, _ := r.Group("g1@g.us")
	if g.Participants[0].JID != "a@s.whatsapp.net" {
		t.Error("mutating a snapshot leaked into the cache")
	}
}

func TestAffiliationChange(t *testing.T) {
	r := newRoster()
	r.ApplyGroup(types.Group{
		JID: "g1@g.us",
		Participants: []types.GroupParticipant{
			{JID: "member@s.whatsapp.net", Affiliation: types.AffiliationMember},
			{JID: "admin@s.whatsapp.net", Affiliation: types.AffiliationAdmin},
		},
	}, true)

	tests := []struct {
		name        string
		participant string
		target      types.Affiliation
		want        string
	}{
		{"promote member", "member@s.whatsapp.net", types.AffiliationAdmin, participantChangePromote},
		{"demote admin", "admin@s.whatsapp.net", types.AffiliationMember, participantChangeDemote},
		{"already admin", "admin@s.whatsapp.net", types.AffiliationAdmin, ""},
		{"already member", "member@s.whatsapp.net", types.AffiliationMember, ""},
		{"unknown participant", "new@s.whatsapp.net", types.AffiliationAdmin, participantChangeAdd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.affiliationChange("g1@g.us", tt.participant, tt.target)
			if got != tt.want {
				t.Errorf("affiliationChange = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAffiliationChangeUnknownGroup(t *testing.T) {
	r := newRoster()
	if got := r.affiliationChange("missing@g.us", "a@s.whatsapp.net", types.AffiliationAdmin); got != participantChangeAdd {
		t.Errorf("affiliationChange for unknown group = %q, want add", got)
	}
}

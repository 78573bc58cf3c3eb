package types

import "testing"

func TestParseJID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    JID
		wantErr bool
	}{
		{"user", "15551234567@s.whatsapp.net", JID{"15551234567", "s.whatsapp.net"}, false},
		{"group", "120363041234567890@g.us", JID{"120363041234567890", "g.us"}, false},
		{"device suffix dropped", "15551234567:12@s.whatsapp.net", JID{"15551234567", "s.whatsapp.net"}, false},
		{"agent suffix dropped", "15551234567.1@s.whatsapp.net", JID{"15551234567", "s.whatsapp.net"}, false},
		{"no server", "15551234567", JID{}, true},
		{"empty user", "@s.whatsapp.net", JID{}, true},
		{"empty", "", JID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJID(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseJID(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestJIDIsGroup(t *testing.T) {
	if !(JID{"1", GroupServer}).IsGroup() {
		t.Error("group JID not recognized")
	}
	if (JID{"1", DefaultUserServer}).IsGroup() {
		t.Error("user JID recognized as group")
	}
}

func TestNewUserJID(t *testing.T) {
	if got := NewUserJID("+15551234567"); got != "15551234567@s.whatsapp.net" {
		t.Errorf("NewUserJID = %q", got)
	}
	if got := NewUserJID("15551234567"); got != "15551234567@s.whatsapp.net" {
		t.Errorf("NewUserJID without plus = %q", got)
	}
}

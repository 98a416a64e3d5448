package roster

import "testing"

func TestParsePatientStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want PatientStatus
	}{
		{"active", PatientActive},
		{"ACTIVE", PatientActive},
		{"Booked", PatientBooked},
		{"follow-up", PatientFollowUp},
		{"FollowUp", PatientFollowUp},
		{"inactive", PatientInactive},
		{"garbage", PatientInactive},
	}
	for _, tt := range tests {
		if got := ParsePatientStatus(tt.raw); got != tt.want {
			t.Errorf("ParsePatientStatus(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Sarah Miller", "SM"},
		{"Cher", "C"},
		{"Anna Maria Lopez", "AL"},
		{"", "?"},
	}
	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAvatarColorDeterministic(t *testing.T) {
	a := AvatarColor("Sarah Miller", "p1")
	b := AvatarColor("Sarah Miller", "p2")
	if a != b {
		t.Error("color should depend on name, not id, when name is set")
	}
	if AvatarColor("", "p1") != AvatarColor("", "p1") {
		t.Error("id fallback should be deterministic")
	}
	if AvatarColor("", "p1") == "" {
		t.Error("empty name should fall back to id, not empty color")
	}
}

func TestRefDisplayName(t *testing.T) {
	unresolved := UnresolvedPatient("p9")
	if unresolved.DisplayName() != "p9" {
		t.Errorf("unresolved DisplayName = %q", unresolved.DisplayName())
	}
	p := Patient{ID: "p9", Name: "James Davis"}
	resolved := PatientRef{ID: "p9", Record: &p}
	if resolved.DisplayName() != "James Davis" {
		t.Errorf("resolved DisplayName = %q", resolved.DisplayName())
	}
}

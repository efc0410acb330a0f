package session

import "testing"

func TestDeriveThreadID(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		groupID  int64
		userID   int64
		isolated bool
		want     ThreadID
	}{
		{"private", KindPrivate, 0, 789012, false, "private_789012"},
		{"private ignores isolation", KindPrivate, 123, 789012, true, "private_789012"},
		{"group shared", KindGroup, 123456, 789012, false, "group_123456"},
		{"group isolated", KindGroup, 123456, 789012, true, "group_123456_789012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveThreadID(tt.kind, tt.groupID, tt.userID, tt.isolated)
			if got != tt.want {
				t.Errorf("DeriveThreadID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveThreadIDDeterministic(t *testing.T) {
	a := DeriveThreadID(KindGroup, 1, 2, true)
	b := DeriveThreadID(KindGroup, 1, 2, true)
	if a != b {
		t.Errorf("same input produced %q and %q", a, b)
	}
}

func TestNamespacesNeverCollide(t *testing.T) {
	// A private user and a group with the same numeric id must never map
	// to the same thread.
	private := DeriveThreadID(KindPrivate, 0, 42, false)
	shared := DeriveThreadID(KindGroup, 42, 42, false)
	isolated := DeriveThreadID(KindGroup, 42, 42, true)

	if private == shared || private == isolated || shared == isolated {
		t.Errorf("namespace collision: %q %q %q", private, shared, isolated)
	}
}

func TestThreadIDPredicates(t *testing.T) {
	tests := []struct {
		id         ThreadID
		isPrivate  bool
		inGroup42  bool
		isolated42 bool
		shared42   bool
	}{
		{"private_42", true, false, false, false},
		{"group_42", false, true, false, true},
		{"group_42_7", false, true, true, false},
		{"group_421", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			if got := tt.id.IsPrivate(); got != tt.isPrivate {
				t.Errorf("IsPrivate() = %v, want %v", got, tt.isPrivate)
			}
			if got := tt.id.InGroup(42); got != tt.inGroup42 {
				t.Errorf("InGroup(42) = %v, want %v", got, tt.inGroup42)
			}
			if got := tt.id.IsIsolatedIn(42); got != tt.isolated42 {
				t.Errorf("IsIsolatedIn(42) = %v, want %v", got, tt.isolated42)
			}
			if got := tt.id.IsSharedIn(42); got != tt.shared42 {
				t.Errorf("IsSharedIn(42) = %v, want %v", got, tt.shared42)
			}
		})
	}
}

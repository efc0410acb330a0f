package session

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two conversation namespaces.
type Kind int

const (
	// KindPrivate is a one-on-one conversation with a single user.
	KindPrivate Kind = iota

	// KindGroup is a group conversation.
	KindGroup
)

// String returns the kind's wire name.
func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "private"
}

// ThreadID identifies one isolated conversation's memory. The derivation
// is a pure function of the message origin:
//
//	private conversation            -> private_{userID}
//	group, isolated per user        -> group_{groupID}_{userID}
//	group, shared                   -> group_{groupID}
//
// The private and group namespaces never collide because of the distinct
// prefixes. Toggling isolation only changes future derivations; it never
// merges or splits existing sessions.
type ThreadID string

// DeriveThreadID computes the ThreadID for a message origin.
// groupID is ignored for private conversations; isolated is ignored
// unless kind is KindGroup.
func DeriveThreadID(kind Kind, groupID, userID int64, isolated bool) ThreadID {
	if kind == KindGroup {
		if isolated {
			return ThreadID(fmt.Sprintf("group_%d_%d", groupID, userID))
		}
		return ThreadID(fmt.Sprintf("group_%d", groupID))
	}
	return ThreadID(fmt.Sprintf("private_%d", userID))
}

// IsPrivate reports whether the thread belongs to the private namespace.
func (id ThreadID) IsPrivate() bool {
	return strings.HasPrefix(string(id), "private_")
}

// InGroup reports whether the thread belongs to the given group, in
// either shared or isolated form.
func (id ThreadID) InGroup(groupID int64) bool {
	shared := fmt.Sprintf("group_%d", groupID)
	return string(id) == shared || strings.HasPrefix(string(id), shared+"_")
}

// IsIsolatedIn reports whether the thread is a per-user thread of the
// given group.
func (id ThreadID) IsIsolatedIn(groupID int64) bool {
	return strings.HasPrefix(string(id), fmt.Sprintf("group_%d_", groupID))
}

// IsSharedIn reports whether the thread is the shared thread of the
// given group.
func (id ThreadID) IsSharedIn(groupID int64) bool {
	return string(id) == fmt.Sprintf("group_%d", groupID)
}

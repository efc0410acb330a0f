// Package session maps conversation identities to isolated in-memory
// state and bounds the number of live conversations.
//
// Responsibilities:
//   - Thread identity: derive a stable ThreadID from a message's origin
//     (private vs group, optional per-user isolation inside a group).
//   - Session state: one Session owns one conversation's message
//     history.
//   - Lifecycle: sessions are created on first use, touched on every
//     access, and evicted least-recently-used when the store exceeds its
//     configured capacity. Administrative clears remove sessions by
//     predicate (used when toggling group isolation).
//
// Thread Safety: Store is safe for concurrent use. All map mutation
// happens under one mutex. A Session's history has its own lock, and
// same-thread turns are serialized through the Session turn lock.
package session

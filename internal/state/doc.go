// Package state holds the in-memory, authoritative view of the inkzone
// collections for one context and keeps it consistent with the shared store.
//
// # Mutations
//
// Every mutation computes the new collection from a copy of the current one,
// installs it in memory and then writes it to the store before returning. A
// failed write is logged and counted but never rolls back the in-memory value;
// it stays the source of truth for the rest of the session.
//
// # Synchronization
//
// Two independent triggers feed the same reconcile entry point:
//
//   - change notifications from the backend, delivered for writes made by
//     other contexts;
//   - a fixed-interval poll that re-reads every key, covering notifications
//     that were dropped or never delivered.
//
// Both re-read the key from the store. Reconcile decodes the stored value and,
// if it differs structurally from the in-memory value, replaces the whole
// collection. Values that fail to decode are ignored, and so are values read
// while a mutation of this context replaced the collection: such a read may
// predate the mutation's write.
//
// # Consistency
//
// Contexts share nothing but the store and there is no cross-context locking:
// when two contexts write the same collection at nearly the same time, the
// last write wins and the other is lost. Quotes and messages are never
// deleted, so those collections grow without bound.
package state

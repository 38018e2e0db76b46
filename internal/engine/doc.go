// Package engine implements the idempotent get-or-create primitive at
// the heart of resultdb.
//
// A call names an entity kind and a field mapping; the engine resolves
// any nested entity values to their canonical persisted rows first,
// then fetches the row matching every field exactly or inserts it.
// Two consistency variants cover the two deployment shapes:
//
//   - Quiet assumes no concurrent writer races on the same natural
//     key; a lost race surfaces as the store's constraint violation.
//   - Noisy retries the lookup after a unique-constraint conflict
//     inside a savepoint, shielding the caller from concurrent
//     duplicate inserts entirely.
//
// The engine runs inside a caller-owned store.Session and never
// commits or closes it.
package engine

// Package store persists the launcher tree in a single SQLite table.
//
// Each node is one row of the items table:
//
//	id | type | app_id | first_child_id | next_sibling_id | x | y | w | h | content
//
// Writes join a transaction that is opened on the first write and held
// until no write has arrived for CommitIdle; the commit is scheduled
// through a Scheduler so the launcher's event loop can own the timer.
// Every write runs through a circuit breaker, and once it opens writes fail
// fast with ErrCircuitOpen until the cool-down passes.
//
// Example Usage:
//
//	st, err := store.Open(ctx, store.Options{
//	    Path:      "/var/lib/launcher/launcher.db",
//	    Scheduler: loop,
//	})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package store

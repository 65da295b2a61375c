/*
Package resilience provides the circuit breaker that guards store writes.

A launcher database can go bad underneath a running session (disk full, file
removed, permissions changed). The in-memory tree stays authoritative in that
case, so writes only need to fail quickly and visibly instead of blocking
every structural edit on a dead connection.

# Usage

	breaker := resilience.New("store", resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	})

	err := breaker.Do(func() error {
		_, err := tx.ExecContext(ctx, upsertSQL, args...)
		return err
	})

Context cancellation and deadlines are the caller giving up, not the
database failing, so by default they do not count against the breaker.
Stats reports the state, counters and the last error for health output.

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[probes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience

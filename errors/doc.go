// Package errors provides structured error types for the fetchq module.
//
// Every error carries a Phase (where it happened) and a Kind (what went
// wrong), so callers can match on category without string comparison:
//
//	if errors.Is(err, &fqerrors.Error{Phase: fqerrors.PhaseHandle, Kind: fqerrors.KindNotFound}) {
//	    // stale handle, not a fault
//	}
//
// Per-request transport failures never surface through this package: they
// are delivered as queue.Outcome values to the originating callback. Only
// synchronous API misuse (bad method, malformed URI, dead handle) and fatal
// startup configuration problems are represented here.
package errors

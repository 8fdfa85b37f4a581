// Package config loads the queue's startup values from an INI file.
//
// The file carries one [queue] section with three required keys: the
// worker thread count, the per-tick callback budget, and the delay in
// microseconds between reattempts of a failed request. There is no other
// persisted state; everything else is runtime API.
package config

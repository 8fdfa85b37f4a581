// Package handle provides generic handle tables for host-side resources.
//
// A Table maps small integer ids to heap-resident values so that only
// integers cross an API boundary, never raw references. Each resource
// kind gets its own table; an id from one table has no meaning in another.
//
//	bodies := handle.NewTable[[]byte]()
//
//	id := bodies.Insert([]byte("payload"))
//	body, ok := bodies.Get(id)
//	bodies.Remove(id)
//
// # Allocation
//
// Ids come from a monotonically increasing counter starting at 1 (0 is
// reserved invalid). Ids are never reused, so a stale handle held by a
// caller fails lookups instead of silently aliasing an unrelated newer
// resource.
//
// # Two-phase registration
//
// PeekNextID returns the id the next Insert will produce. A caller that
// needs a value to reference its own id, such as a completion hook that
// removes its own table entry, computes the id first, builds the value
// around it, then inserts:
//
//	id := table.PeekNextID()
//	table.Insert(makeSelfRemovingValue(id))
//
// # Cleanup
//
// Values implementing Dropper get their Drop method called by Remove and
// Clear. Detach skips cleanup for values whose lifecycle ends elsewhere.
package handle

// Package jsonval models JSON documents as tagged values suitable for
// handle-based access across an API boundary.
//
// A Value is one of six variants: null, bool, number, string, array or
// object. Documents come from Parse/ParseBytes/ParseFile or from the New*
// constructors, and go back to text with Serialize.
//
// Descending accessors (Get, GetPath, Index) return independent deep
// copies, so a sub-document handed out as its own handle never aliases
// its parent. Mutators (Set, Append, SetIndex, ...) copy their argument
// for the same reason.
//
// GetPath resolves dot-separated paths:
//
//	doc, _ := jsonval.Parse(`{"player": {"stats": {"kills": 7}}}`)
//	kills, err := doc.GetPath("player.stats.kills")
//
// Traversal failures are structured errors naming the path prefix that
// failed (an empty segment, a non-object in the middle of the path, or
// a missing key), never a silently returned default.
package jsonval

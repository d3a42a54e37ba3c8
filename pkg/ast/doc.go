// Package ast defines the node graph that the inspection engine reads.
//
// A graph is produced by a parser (see pkg/parser) and may describe a
// document that failed to parse. Nodes the parser finished are
// Materialized; nodes it was still building when it stopped are Pending.
// Both are stored in one arena keyed by node id and reached through a
// NodeRef, so callers never need to know which state a node is in unless
// they ask.
//
// Usage:
//
//	graph, err := parser.Parse(text)
//	// err may be a *parser.SyntaxError; graph is still usable.
//
//	for _, ref := range graph.Ancestry(leafID) {
//	    fmt.Println(ref.Kind(), ref.IsPending())
//	}
package ast

// Package router implements the path-matching routing table: a trie
// keyed by URL path segments with support for named-parameter
// segments, deterministic literal-over-parameter precedence, and
// prefix semantics where the deepest registered route wins. Tables are
// immutable after Build; Handle provides lock-free atomic snapshot
// swapping for reloads.
package router

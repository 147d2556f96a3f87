// Package searcher provides the per-thread scratch state of graph operations.
//
// A Context owns everything an insertion or a query mutates besides the graph
// itself:
//   - a min-heap frontier and a bounded max-heap result set
//   - a visited bitset with a dirty list for O(visited) reset
//   - buffers for the encoded query and neighbor selection
//
// Pool binds Contexts to explicit thread slots, allocating them lazily, and
// lends anonymous Contexts to callers that do not name a slot.
package searcher

// Package vectorstore provides the node arena of the proximity graph.
//
// # Architecture
//
// Storage uses a Structure-of-Arrays layout indexed by storage order:
//
//	vectors  capacity × stride bytes          encoded vectors
//	labels   capacity × uint32                external labels
//	levels   capacity × uint8                 top layer of each node
//	base     capacity × 2M × uint32           layer-0 neighbor slots
//	upper    per node, level × M × uint32     neighbor slots of layers 1..level
//
// Unused neighbor slots hold Sentinel. Neighbors reference storage indices,
// never labels, so the same arrays serialize unchanged and can be addressed
// in place inside a memory-mapped file.
//
// # Concurrency
//
// Node payloads (vector, label, level) are written once before the node is
// linked into the graph and never change afterwards. Neighbor slots are read
// and written with 32-bit atomics so searches can run alongside insertions;
// writers serialize per node through the graph's locks. Grow replaces the
// arrays and requires exclusive access.
package vectorstore

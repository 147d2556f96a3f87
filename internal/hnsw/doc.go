// Package hnsw implements Hierarchical Navigable Small World graphs.
//
// HNSW provides approximate nearest neighbor search with high recall and
// sub-linear query time. Nodes live in a vectorstore arena and are addressed
// by storage index.
//
// # Features
//
//   - Striped per-node locks for write concurrency
//   - Lock-free search path over atomic neighbor slots
//   - Heuristic neighbor selection on insert and on overflow
//   - Lock-free RNG (xorshift64*) for level assignment
//
// # Parameters
//
//   - M: neighbors per upper layer, 2M on layer 0 (default: 16)
//   - EF: construction queue size (default: 128)
//   - EFSearch: search queue size (default: 64, raised to k)
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw

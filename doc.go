// Package annex is an embedded approximate nearest-neighbor index built on a
// hierarchical navigable small world (HNSW) graph.
//
// Vectors are stored quantized in a single preallocated arena together with
// their neighbor lists. The arena can be saved to a file, loaded back into
// memory, or memory-mapped as a read-only view that answers searches without
// copying.
//
// # Quick Start
//
//	idx, err := annex.NewCos(768, "f16", 16, 128, 64)
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	_ = idx.Reserve(10_000)
//	_ = idx.Add(42, embedding)
//
//	m, err := idx.Search(query, 10)
//	for i := 0; i < m.Count; i++ {
//	    fmt.Println(m.Labels[i], m.Distances[i])
//	}
//
// # Metrics
//
//   - ip: 1 - <a, b>, for vectors the caller keeps normalized
//   - l2sq: squared Euclidean distance
//   - cos: 1 - cosine similarity; vectors are normalized on insert
//   - haversine: great-circle distance in radians between (lat, lon) pairs
//     given in degrees
//
// # Quantization
//
// Stored vectors are encoded as "f64", "f32", "f16", "i8" (alias "f8") or
// "b1". Sign bits ("b1") keep only the direction of a vector and are
// available for cosine indexes only. Queries are encoded the same way.
//
// # Concurrency
//
// Add and Search may run from any number of goroutines. Callers that manage
// their own workers can pin scratch state with AddInThread and
// SearchInThread, passing a slot in [0, WithMaxThreads). Reserve, Save,
// Load, View and Close are exclusive. A full index grows on Add unless
// WithGrowth(false) is set.
//
// # Persistence
//
//	err := idx.Save("products.anx")   // atomic write, CRC32 checked on Load
//	err = idx.Load("products.anx")    // owned, writable copy
//	err = idx.View("products.anx")    // zero-copy, read-only mapping
//
// Publish and Fetch move files through a blobstore.BlobStore such as
// blobstore/s3 or blobstore/minio, optionally compressed with lz4 or zstd.
//
// # Configuration
//
// New builds an index from a Config, which LoadConfig reads from YAML:
//
//	metric: cos
//	dimensions: 768
//	quantization: i8
//	connectivity: 32
//	resources:
//	  memory_limit_bytes: 1073741824
package annex

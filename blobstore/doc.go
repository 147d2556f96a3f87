// Package blobstore stores saved index files outside the local disk.
//
// A BlobStore holds immutable blobs under flat names. The index publishes
// its file format into a store with Publish and fetches it back with Fetch,
// LoadFrom or ViewFrom.
//
// # Built-in Implementations
//
//   - LocalStore: a directory, with memory-mapped reads
//   - MemoryStore: in-process, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// Remote backends implement ReadRange with ranged GETs, so a reader pulls
// only the bytes it asks for.
package blobstore

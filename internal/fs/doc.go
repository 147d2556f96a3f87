// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: the operations an atomic save needs (open, rename,
//     remove, directory sync)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, sync, close and rename errors
//
// # Usage
//
// Production code uses fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
// Tests inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 1024})
//
// Local filesystem calls are not interruptible at the syscall level, so the
// interfaces take no context.Context. Remote storage lives in blobstore.
package fs

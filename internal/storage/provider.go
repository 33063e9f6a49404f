// Package storage implements the attachment file tree: one directory per
// record under a fixed root, with atomic writes and traversal protection.
package storage

// Files is the interface for attachment file operations. All paths are
// relative to the attachment root.
type Files interface {
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Abs resolves path to an absolute location under the root.
	Abs(path string) (string, error)
}

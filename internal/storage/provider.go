// Package storage defines the output-vault file-system abstraction.
package storage

import "github.com/starford/raido/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root; implementations must reject anything that escapes it.
type Provider interface {
	// List returns metadata for every file under dir (relative to vault root).
	List(dir string) ([]models.VaultFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

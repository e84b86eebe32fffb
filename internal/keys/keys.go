// Package keys manages the key material that unlocks the encrypted volume.
//
// The key is a file of random bytes consumed by the volume encryption tool
// via --key-file. It is created once and reused forever; existing key bytes
// are never overwritten, since losing them makes the volume unreadable.
package keys

import (
	"crypto/rand"
	"fmt"

	"github.com/loopvault/loopvault/internal/fsops"
)

// Ensure guarantees a key file exists at path, generating size random bytes
// when absent. Returns true when a new key was generated. An existing file
// is left untouched regardless of its contents.
func Ensure(fs fsops.FS, path string, size int) (bool, error) {
	exists, err := fs.Exists(path)
	if err != nil {
		return false, fmt.Errorf("failed to check key file: %w", err)
	}
	if exists {
		return false, nil
	}

	if size <= 0 {
		return false, fmt.Errorf("invalid key size %d", size)
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return false, fmt.Errorf("failed to generate key material: %w", err)
	}

	if err := fs.AtomicWrite(path, key, 0600); err != nil {
		return false, fmt.Errorf("failed to write key file: %w", err)
	}
	return true, nil
}

// Package layers implements the four nested resource layers of the backup
// stack: the remote mount, the loop device bound to the image file on it,
// the encrypted volume unlocked from the loop device, and the filesystem
// mounted from the decrypted volume.
//
// Layers open top-down (remote first) and close bottom-up. Each layer checks
// its own precondition in Open and keeps Close idempotent so teardown can be
// retried after a crash.
package layers

import (
	"context"
	"errors"
)

// ErrNotConnected indicates the remote mount is absent where an operation
// requires it.
var ErrNotConnected = errors.New("remote directory is not mounted")

// Layer is one stage of the resource stack.
type Layer interface {
	// Name identifies the layer in operator output.
	Name() string

	// Open acquires the layer's resource.
	Open(ctx context.Context) error

	// Close releases the layer's resource. Closing an already-closed
	// layer must not fail.
	Close(ctx context.Context) error
}

// Package config manages loopvault configuration and filesystem paths.
//
// All data lives under a single root directory (default ~/.loopvault,
// overridable with LOOPVAULT_ROOT): the config file, the persisted
// loop-device identifier, the advisory lock, the generated key and the two
// local mount points. The Config struct is loaded once at startup and passed
// down immutably; nothing reads configuration ambiently.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/sizes"
)

// Paths contains the filesystem paths used by loopvault.
type Paths struct {
	// Root is the base directory for all loopvault data (default: ~/.loopvault)
	Root string

	// Config is the path to the config file
	Config string

	// LoopFile is the persisted loop-device identifier file
	LoopFile string

	// LockFile is the advisory lock guarding mutating workflows
	LockFile string

	// RemotePoint is the local mount point for the remote directory
	RemotePoint string

	// DataPoint is the local mount point for the decrypted filesystem
	DataPoint string
}

// DefaultPaths returns the default paths, honoring LOOPVAULT_ROOT.
func DefaultPaths() (*Paths, error) {
	root := os.Getenv("LOOPVAULT_ROOT")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".loopvault")
	}
	return PathsIn(root), nil
}

// PathsIn returns the paths rooted at the given directory.
func PathsIn(root string) *Paths {
	return &Paths{
		Root:        root,
		Config:      filepath.Join(root, "config.json"),
		LoopFile:    filepath.Join(root, "loopdev"),
		LockFile:    filepath.Join(root, "lock"),
		RemotePoint: filepath.Join(root, "remote"),
		DataPoint:   filepath.Join(root, "data"),
	}
}

// EnsureDirectories creates the root and mount point directories.
func (p *Paths) EnsureDirectories(fs fsops.FS) error {
	for _, dir := range []string{p.Root, p.RemotePoint, p.DataPoint} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Config is the user-editable configuration.
type Config struct {
	// Remote is the sshfs location of the backup host (user@host:directory)
	Remote string `json:"remote"`

	// ImageName is the name of the image file inside the remote directory
	ImageName string `json:"imageName"`

	// ImageSize is the size spec used when creating the image (e.g. "512M")
	ImageSize string `json:"imageSize"`

	// SizeBase selects size-unit semantics: 10 for SI, 2 for binary
	SizeBase int `json:"sizeBase"`

	// VolumeName is the fixed device-mapper name of the unlocked volume
	VolumeName string `json:"volumeName"`

	// KeyFile is an optional user-supplied key path. When set, no key is
	// ever generated; when empty, a key is generated under the root dir.
	KeyFile string `json:"keyFile,omitempty"`

	// KeySize is the byte length of a generated key
	KeySize int `json:"keySize"`

	// Source is the local directory mirrored by backup
	Source string `json:"source"`

	// Excludes are rsync exclude patterns applied during backup
	Excludes []string `json:"excludes"`

	// Confirm enables the interactive confirmation prompt for every
	// privileged step (also forced on by --verbose)
	Confirm bool `json:"confirm"`

	// Color enables colored operator output
	Color bool `json:"color"`

	// ShowStatus prints the status report after every workflow
	ShowStatus bool `json:"showStatus"`
}

// Default returns a config with sensible defaults and no remote configured.
func Default() *Config {
	return &Config{
		ImageName:  "vault.img",
		ImageSize:  "512M",
		SizeBase:   sizes.BaseSI,
		VolumeName: "loopvault",
		KeySize:    4096,
		Excludes:   []string{},
		Confirm:    false,
		Color:      true,
		ShowStatus: true,
	}
}

// Load reads and validates the config file at path.
func Load(fs fsops.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config atomically.
func Save(fs fsops.FS, path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks that the config is complete enough to run workflows.
func (c *Config) Validate() error {
	if c.Remote == "" {
		return fmt.Errorf("config: remote location is not set")
	}
	if c.ImageName == "" {
		return fmt.Errorf("config: image name is not set")
	}
	if c.VolumeName == "" {
		return fmt.Errorf("config: volume name is not set")
	}
	if _, err := sizes.Parse(c.ImageSize, c.SizeBase); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.KeySize <= 0 {
		return fmt.Errorf("config: key size must be positive")
	}
	return nil
}

// ImageBytes returns the configured image size in bytes.
func (c *Config) ImageBytes() (int64, error) {
	return sizes.Parse(c.ImageSize, c.SizeBase)
}

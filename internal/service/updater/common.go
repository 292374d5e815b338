package updater

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/oshokin/attention-check/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

var errHashUnavailable = errors.New("hash function unavailable")

const (
	// VersionFilename is the update manifest published next to the binaries.
	VersionFilename = "attention-check-version.yaml"

	// DefaultFileMode is used when producing artifacts for distribution.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to calculate update file hashes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// Base executable names; platform helpers append extension when needed.
	baseServerExecutable   = "attention-server"
	baseTriggerExecutable  = "attention-trigger"
	basePackagerExecutable = "attention-packager"

	defaultMapCapacity = 4
)

// Description is the update manifest of a published release.
type Description struct {
	// VersionNumber is the semantic version of this release.
	VersionNumber string `yaml:"version"`
	// Files maps file names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
	// Executable is the file the update checker replaces.
	Executable string `yaml:"executable"`
}

// NewDescription produces a Description for the running build.
func NewDescription() *Description {
	return &Description{
		VersionNumber: version.Short(),
		Files:         make(map[string]string, defaultMapCapacity),
		Executable:    ServerExecutable(),
	}
}

// Checksum returns the decoded checksum of name.
func (d *Description) Checksum(name string) ([]byte, error) {
	encoded, ok := d.Files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errNoChecksum)
	}

	checksum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode checksum of %s: %w", name, err)
	}

	return checksum, nil
}

// FilesWithChecksum returns the artifacts listed in the manifest for this platform.
func FilesWithChecksum() []string {
	return []string{
		ServerExecutable(),
		TriggerExecutable(),
		PackagerExecutable(),
	}
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// EncodeChecksum renders a checksum the way the manifest and settings store it.
func EncodeChecksum(checksum []byte) string {
	return base64.StdEncoding.EncodeToString(checksum)
}

// ServerExecutable is the file name of the server binary on this platform.
func ServerExecutable() string {
	return baseServerExecutable + executableExtension()
}

// TriggerExecutable is the file name of the trigger binary on this platform.
func TriggerExecutable() string {
	return baseTriggerExecutable + executableExtension()
}

// PackagerExecutable is the file name of the packager binary on this platform.
func PackagerExecutable() string {
	return basePackagerExecutable + executableExtension()
}

func executableExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}

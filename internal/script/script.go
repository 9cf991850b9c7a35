// Package script turns repository paths into in-memory migration scripts.
package script

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Script is the content of one migration file as found in the working copy.
// Scripts are opaque text; nothing here parses SQL.
type Script struct {
	Name     string // base name of Path
	Path     string // repository-relative, slash separated
	Contents string
}

// Valid reports whether the script has any content besides whitespace.
// Blank scripts are placeholders and are left out of batches.
func (s Script) Valid() bool {
	return strings.TrimSpace(s.Contents) != ""
}

// Checksum returns the hex BLAKE2b-256 digest of the contents.
func (s Script) Checksum() string {
	sum := blake2b.Sum256([]byte(s.Contents))
	return hex.EncodeToString(sum[:])
}

// ShortChecksum returns the first 12 hex digits of Checksum.
func (s Script) ShortChecksum() string {
	return s.Checksum()[:12]
}

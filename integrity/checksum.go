package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// ChecksumChecker is a dependency-free fallback integrity collaborator for
// deployments without cosign: it compares a plugin file's SHA-256 digest
// against a pinned table. No library in the example pack offers a
// checksum-pinning mechanism of its own, so this is implemented directly on
// crypto/sha256 rather than reaching for a third-party alternative.
type ChecksumChecker struct {
	// Digests maps plugin name to its expected lowercase hex SHA-256
	// digest. A plugin absent from the map is treated as unverified and
	// passes — the same "no collaborator configured for this plugin"
	// leniency the cosign checker applies when the CLI is missing.
	Digests map[string]string
}

func (c *ChecksumChecker) CheckFile(name, path string) bool {
	want, ok := c.Digests[name]
	if !ok {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	return hex.EncodeToString(h.Sum(nil)) == want
}

// CheckSegment has no file-granularity equivalent; CheckFile already
// verified the whole binary containing the symbol.
func (c *ChecksumChecker) CheckSegment(name, symbol string) bool {
	return true
}

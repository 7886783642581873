package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Prefix marks a hash as SHA-256 encoded with standard base64.
const Prefix = "h1:"

// Bytes returns the h1 hash of the given content.
//
// Example:
//
//	checksum.Bytes([]byte("CREATE TABLE users (id INT);"))
//	// h1:...
func Bytes(content []byte) string {
	sum := sha256.Sum256(content)
	return Prefix + base64.StdEncoding.EncodeToString(sum[:])
}

// File reads the file at path and returns the h1 hash of its raw bytes.
func File(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file for checksum: %s", path)
	}

	return Bytes(content), nil
}

// Combine returns the hash of the ordered concatenation of hashes.
//
// Combine is order sensitive: Combine(a, b) != Combine(b, a) unless a == b.
// An empty list produces an empty string.
func Combine(hashes ...string) string {
	if len(hashes) == 0 {
		return ""
	}

	var b strings.Builder
	for _, h := range hashes {
		b.WriteString(h)
	}

	return Bytes([]byte(b.String()))
}

// Valid reports whether s looks like a hash produced by this package.
func Valid(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, Prefix))
	return err == nil && len(raw) == sha256.Size
}

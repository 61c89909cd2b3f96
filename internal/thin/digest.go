// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"crypto/md5"  //nolint:gosec // Digest form requested by callers, not used for security
	"crypto/sha1" //nolint:gosec // Digest form requested by callers, not used for security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// ErrUnknownHashForm is returned for digest names GetHash does not know.
var ErrUnknownHashForm = errors.New("unknown hash form")

var hashForms = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// HashForms lists the supported digest names.
func HashForms() []string {
	return sortedKeys(hashForms)
}

// GetHash streams the file at path through the named digest and returns it
// hex encoded.
func GetHash(path, form string) (string, error) {
	newHash, ok := hashForms[strings.ToLower(form)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownHashForm, form)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	h := newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

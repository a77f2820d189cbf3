// Package identity derives short, stable article identifiers from URLs.
//
// The identifier is the first Length hex characters of the SHA-256 digest of
// the URL bytes. URLs are hashed verbatim: trailing slashes, query order and
// scheme all change the identifier.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Length is the number of hex characters kept from the digest.
const Length = 8

// ErrInvalidUTF8 is returned by Derive for input that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("url is not valid utf-8")

// ID returns the identifier for url. It never fails; the empty string has an ID too.
func ID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:Length]
}

// Derive is ID with input validation for collaborators that hand over raw bytes.
func Derive(url string) (string, error) {
	if !utf8.ValidString(url) {
		return "", fmt.Errorf("derive id for %q: %w", url, ErrInvalidUTF8)
	}
	return ID(url), nil
}

// Package clientaccess generates the opaque tokens behind the public
// dossier, quote and invoice links. Possession of the link is the whole
// credential, so the token is nothing but URL-safe random bytes.
package clientaccess

import (
	"crypto/rand"
	"encoding/base64"
)

// NewToken returns a token with size bytes of entropy, encoded so it can be
// embedded in a URL path segment without escaping.
func NewToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Package keywrap wraps and unwraps symmetric keys under RSA keys using
// OAEP (MGF1 with the same digest) or PKCS#1 v1.5 padding.
package keywrap

import (
	"crypto"
	"errors"
	"fmt"
	"strings"

	// Register hash implementations used by OAEP.
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Digest selects the RSA padding scheme used to wrap a key.
// None means PKCS#1 v1.5, every other value means OAEP with that digest.
type Digest int

const (
	None   Digest = iota // RSA/ECB/PKCS1Padding.
	SHA1                 // OAEP with SHA-1 and MGF1/SHA-1.
	SHA256               // OAEP with SHA-256 and MGF1/SHA-256.
	SHA512               // OAEP with SHA-512 and MGF1/SHA-512.
)

// NoneName is the sentinel digest name selecting PKCS#1 v1.5 padding.
const NoneName = "NONE"

var errUnknownDigest = errors.New("unknown oaep digest algorithm")

// String returns the canonical hyphenated digest name.
func (d Digest) String() string {
	switch d {
	case SHA1:
		return "SHA-1"
	case SHA256:
		return "SHA-256"
	case SHA512:
		return "SHA-512"
	default:
		return NoneName
	}
}

// IsOAEP reports whether the digest selects OAEP padding.
func (d Digest) IsOAEP() bool {
	return d != None
}

func (d Digest) hash() crypto.Hash {
	switch d {
	case SHA1:
		return crypto.SHA1
	case SHA256:
		return crypto.SHA256
	case SHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// NormalizeDigestName rewrites a digest name to its hyphenated upper-case form,
// e.g. "sha256" becomes "SHA-256". NONE is returned as is.
func NormalizeDigestName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == NoneName {
		return n
	}
	if !strings.Contains(n, "-") {
		n = strings.Replace(n, "SHA", "SHA-", 1)
	}

	return n
}

// ParseDigest maps a digest name to a Digest. Spelling with or without the
// hyphen is accepted in any case.
func ParseDigest(name string) (Digest, error) {
	switch NormalizeDigestName(name) {
	case NoneName:
		return None, nil
	case "SHA-1":
		return SHA1, nil
	case "SHA-256":
		return SHA256, nil
	case "SHA-512":
		return SHA512, nil
	default:
		return None, fmt.Errorf("%w: %q", errUnknownDigest, name)
	}
}

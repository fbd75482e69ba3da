package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainSignature      = "ergo/signature/v1"
	DomainGraph          = "ergo/graph/v1"
	DomainManifest       = "ergo/manifest/v1"
	DomainCatalog        = "ergo/catalog/v1"
	DomainSignatureCache = "ergo/signature-cache/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical JSON of v under domain.
func HashCanonical(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustHashCanonical is like HashCanonical but panics on error.
// Use only where v is built from known-good values.
func MustHashCanonical(domain string, v IRValue) string {
	h, err := HashCanonical(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}

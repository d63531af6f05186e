package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration without hash collisions across
// versions.
const (
	DomainModel       = "tally/model/v1"
	DomainAssumptions = "tally/assumptions/v1"
	DomainRun         = "tally/run/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data). The null
// separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalJSON serializes v as RFC 8785 canonical JSON: key-sorted,
// whitespace-free, shortest-round-trip number formatting. This is the
// only serialization that may feed a content hash.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical JSON: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical JSON: %w", err)
	}
	return canonical, nil
}

// hashCanonical canonicalizes v and hashes it under the domain.
func hashCanonical(domain string, v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashWithDomain(domain, data), nil
}

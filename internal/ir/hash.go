package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainConfiguration separates configuration fingerprints from any other
// hash the project may compute later.
const DomainConfiguration = "gql-dyn/configuration/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of the configuration. Two catalogs that
// declare the same kinds and fields share a fingerprint regardless of the
// order or format they were written in.
func Fingerprint(c Configuration) (string, error) {
	data, err := MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("fingerprint configuration: %w", err)
	}
	return hashWithDomain(DomainConfiguration, data), nil
}

package document

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"
)

// Canonical returns the compact JSON form of doc with object keys sorted,
// including those inside node properties.
func Canonical(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}
	return json.Marshal(generic)
}

// Hash is the hex BLAKE3-256 digest of the canonical form. Documents that
// differ only in formatting or key order hash the same.
func Hash(doc *Document) (string, error) {
	data, err := Canonical(doc)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

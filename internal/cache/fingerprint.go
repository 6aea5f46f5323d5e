package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/costpilot/costpilot/internal/models"
)

// Fingerprint returns the deterministic content hash of a query: sha256 over
// the partition type and the canonical JSON form of the query parameters.
// encoding/json sorts map keys, so semantically equal queries always produce
// the same bytes regardless of how their filter maps were built.
//
// Changing any field of the query (date range, account scope, region,
// filters, SQL) changes the fingerprint and therefore forces a fresh fetch.
// Callers must resolve relative time windows into absolute dates before
// building the query; the fingerprint cannot see through "last month".
func Fingerprint(q models.Query) (string, error) {
	canonical, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("canonicalize query: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(q.PartitionType))
	h.Write([]byte{0}) // separator so partition type and params cannot alias
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

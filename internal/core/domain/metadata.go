package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type MetadataEntry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

func (e *MetadataEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// MetadataKey derives the cache key of a coin's metadata document.
func MetadataKey(parentID, puzzleHash Hash, uri string) string {
	h := sha256.New()
	h.Write(parentID[:])
	h.Write(puzzleHash[:])
	h.Write([]byte(uri))
	return hex.EncodeToString(h.Sum(nil))
}

package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DatasetHash fingerprints an expression bundle so a run record pins the
// exact data it scored.
type DatasetHash Hash

// String returns the string representation
func (h DatasetHash) String() string { return Hash(h).String() }

// ComputeDatasetHash fingerprints spot identity, entity identity and the raw
// expression values. Order matters: the same data reordered hashes
// differently, which is intended since row order drives the spatial join.
func ComputeDatasetHash(spots []SpotID, entities []EntityKey, values [][]float64) DatasetHash {
	var data strings.Builder
	for _, s := range spots {
		data.WriteString(string(s))
		data.WriteByte(0)
	}
	data.WriteByte(1)
	for _, e := range entities {
		data.WriteString(string(e))
		data.WriteByte(0)
	}
	data.WriteByte(1)

	buf := make([]byte, 8)
	for _, row := range values {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			data.Write(buf)
		}
	}
	return DatasetHash(NewHash([]byte(data.String())))
}

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// RunID identifies one analysis run.
	RunID ID
	// SpotID identifies a spatial observation (spot or cell).
	SpotID string
	// EntityKey identifies a measured entity: a gene, a ligand or receptor
	// complex, or an estimated metabolite.
	EntityKey string
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id SpotID) String() string     { return string(id) }
func (key EntityKey) String() string { return string(key) }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// PairKey names an ordered entity pair as "x^y", following the
// ligand^receptor convention of interaction resources.
type PairKey string

// NewPairKey builds the key for an (x, y) entity pair
func NewPairKey(x, y EntityKey) PairKey {
	return PairKey(string(x) + "^" + string(y))
}

// Split returns the two entity keys of the pair
func (k PairKey) Split() (EntityKey, EntityKey, error) {
	parts := strings.SplitN(string(k), "^", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair key %q", string(k))
	}
	return EntityKey(parts[0]), EntityKey(parts[1]), nil
}

// String returns the string representation
func (k PairKey) String() string { return string(k) }

package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	// Generate many IDs
	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-123", RunID("run-123"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestPairKeyRoundTrip tests pair key construction and splitting
func TestPairKeyRoundTrip(t *testing.T) {
	key := NewPairKey("TGFB1", "TGFBR1")
	if key.String() != "TGFB1^TGFBR1" {
		t.Errorf("Expected 'TGFB1^TGFBR1', got '%s'", key)
	}

	x, y, err := key.Split()
	if err != nil {
		t.Fatalf("Unexpected split error: %v", err)
	}
	if x != "TGFB1" || y != "TGFBR1" {
		t.Errorf("Expected (TGFB1, TGFBR1), got (%s, %s)", x, y)
	}

	for _, bad := range []PairKey{"", "noseparator", "^y", "x^"} {
		if _, _, err := bad.Split(); err == nil {
			t.Errorf("Expected error splitting %q, got none", bad)
		}
	}
}

// TestDatasetHashSensitivity tests that the fingerprint reacts to content and order
func TestDatasetHashSensitivity(t *testing.T) {
	spots := []SpotID{"s1", "s2"}
	entities := []EntityKey{"a", "b"}
	values := [][]float64{{1, 2}, {3, 4}}

	h1 := ComputeDatasetHash(spots, entities, values)
	h2 := ComputeDatasetHash(spots, entities, values)
	if h1 != h2 {
		t.Error("Expected identical inputs to hash identically")
	}

	values[1][1] = 5
	h3 := ComputeDatasetHash(spots, entities, values)
	if h1 == h3 {
		t.Error("Expected value change to change the hash")
	}

	h4 := ComputeDatasetHash([]SpotID{"s2", "s1"}, entities, values)
	if h3 == h4 {
		t.Error("Expected spot reorder to change the hash")
	}
}

// Package local computes spatially-weighted local bivariate statistics:
// per-spot association scores between paired entity columns under a spot
// proximity weighting, with permutation significance and sign-category
// labels.
package local

import (
	"strings"

	apperrors "gocoex/internal/errors"
)

// Method selects the bivariate statistic. The set is closed; resolution
// happens once at call setup, never per spot.
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
	MethodCosine   Method = "cosine"
	MethodJaccard  Method = "jaccard"
)

type methodInfo struct {
	// correlative statistics clamp to [-1, 1] and use the variance-product
	// denominator floor
	correlative bool
	// masked reports whether the per-spot masked variant supports it
	masked bool
}

var methodTable = map[Method]methodInfo{
	MethodPearson:  {correlative: true, masked: true},
	MethodSpearman: {correlative: true, masked: true},
	MethodCosine:   {correlative: false, masked: false},
	MethodJaccard:  {correlative: false, masked: false},
}

// Methods lists the supported statistics in presentation order
func Methods() []Method {
	return []Method{MethodPearson, MethodSpearman, MethodCosine, MethodJaccard}
}

// ParseMethod resolves a statistic by name. Unknown names, including
// statistics other tools advertise but this engine does not carry, fail with
// a configuration error.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := methodTable[m]; !ok {
		return "", apperrors.Configurationf("unknown local statistic %q (supported: pearson, spearman, cosine, jaccard)", name)
	}
	return m, nil
}

// Correlative reports whether the statistic is a correlation (clamped to [-1, 1])
func (m Method) Correlative() bool {
	return methodTable[m].correlative
}

// SupportsMasked reports whether the per-spot masked variant carries the statistic
func (m Method) SupportsMasked() bool {
	return methodTable[m].masked
}

// String returns the statistic's name
func (m Method) String() string { return string(m) }

package spatial

import (
	"math"
	"strings"

	apperrors "gocoex/internal/errors"
)

// Family selects the distance-decay kernel used to turn Euclidean distances
// into proximity weights.
type Family string

const (
	// FamilyGaussian is exp(-d^2 / (2*l^2))
	FamilyGaussian Family = "gaussian"
	// FamilyRBF is the SpatialDM-style kernel exp(-d^2 / l^2)
	FamilyRBF Family = "rbf"
	// FamilyExponential is exp(-d / l)
	FamilyExponential Family = "exponential"
	// FamilyLinear is max(0, 1 - d/l)
	FamilyLinear Family = "linear"
)

// Families lists the supported kernel families in presentation order
func Families() []Family {
	return []Family{FamilyGaussian, FamilyRBF, FamilyExponential, FamilyLinear}
}

// ParseFamily resolves a kernel family name. Aliases from other tools are
// accepted ("normal" for gaussian, "spatialdm"/"misty_rbf" for rbf).
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian", "normal":
		return FamilyGaussian, nil
	case "rbf", "spatialdm", "misty_rbf":
		return FamilyRBF, nil
	case "exponential":
		return FamilyExponential, nil
	case "linear":
		return FamilyLinear, nil
	default:
		return "", apperrors.Configurationf("unknown kernel family %q (supported: gaussian, rbf, exponential, linear)", name)
	}
}

// weight evaluates the kernel at distance d with decay scale l
func (f Family) weight(d, l float64) float64 {
	switch f {
	case FamilyGaussian:
		return math.Exp(-(d * d) / (2 * l * l))
	case FamilyRBF:
		return math.Exp(-(d * d) / (l * l))
	case FamilyExponential:
		return math.Exp(-d / l)
	case FamilyLinear:
		w := 1 - d/l
		if w < 0 {
			return 0
		}
		return w
	default:
		return 0
	}
}

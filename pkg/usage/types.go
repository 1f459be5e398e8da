package usage

// Feature represents a metered, gated feature of the app.
type Feature string

const (
	FeatureNumerology      Feature = "numerology"
	FeatureLoveMatch       Feature = "love_match"
	FeatureTrustAssessment Feature = "trust_assessment"
)

// allFeatures is the canonical ordering used when iterating features.
var allFeatures = []Feature{
	FeatureNumerology,
	FeatureLoveMatch,
	FeatureTrustAssessment,
}

// Features returns all known features in a stable order.
func Features() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}

// Valid reports whether f is one of the known features.
func (f Feature) Valid() bool {
	switch f {
	case FeatureNumerology, FeatureLoveMatch, FeatureTrustAssessment:
		return true
	}
	return false
}

func (f Feature) String() string {
	return string(f)
}

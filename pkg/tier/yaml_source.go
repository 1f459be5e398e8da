package tier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lunaria/entitlement/pkg/usage"
)

// yamlSource loads the tier catalog from a versioned YAML config file.
// The file is the deploy surface for limit changes:
//
//	version: 1
//	tiers:
//	  free:
//	    name: Free
//	    limits:
//	      numerology: 3
//	      love_match: 1
//	      trust_assessment: 1
//	    features:
//	      - 3 numerology readings per month
//	  unlimited:
//	    name: Unlimited
//	    limits:
//	      numerology: -1
//	      love_match: -1
//	      trust_assessment: -1
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading the catalog from the given file.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlCatalog struct {
	Version int                 `yaml:"version"`
	Tiers   map[string]yamlTier `yaml:"tiers"`
}

type yamlTier struct {
	Name     string           `yaml:"name"`
	Limits   map[string]int64 `yaml:"limits"`
	Features []string         `yaml:"features"`
}

// Load reads and parses the catalog file.
func (s *yamlSource) Load(ctx context.Context) (map[ID]Tier, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	if doc.Version != 1 {
		return nil, errors.Join(ErrFailedToLoadTiers,
			fmt.Errorf("unsupported catalog version %d", doc.Version))
	}

	tiers := make(map[ID]Tier, len(doc.Tiers))
	for rawID, yt := range doc.Tiers {
		id := ID(rawID)

		limits := make(map[usage.Feature]int64, len(yt.Limits))
		for rawFeature, limit := range yt.Limits {
			limits[usage.Feature(rawFeature)] = limit
		}

		tiers[id] = Tier{
			ID:       id,
			Name:     yt.Name,
			Limits:   limits,
			Features: yt.Features,
		}
	}

	return tiers, nil
}

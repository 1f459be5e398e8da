package tier

import "context"

// inMemSource implements Source using an in-memory tier map.
type inMemSource struct {
	tiers map[ID]Tier
}

// NewInMemSource returns a Source holding a deep copy of the given tiers.
func NewInMemSource(tiers map[ID]Tier) Source {
	tiersCopy := make(map[ID]Tier, len(tiers))
	for id, t := range tiers {
		tiersCopy[id] = t.clone()
	}
	return &inMemSource{tiers: tiersCopy}
}

// Load returns a copy of all tiers from memory.
func (s *inMemSource) Load(ctx context.Context) (map[ID]Tier, error) {
	tiersCopy := make(map[ID]Tier, len(s.tiers))
	for id, t := range s.tiers {
		tiersCopy[id] = t.clone()
	}
	return tiersCopy, nil
}

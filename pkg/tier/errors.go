package tier

import "errors"

var (
	ErrFailedToLoadTiers        = errors.New("tier: failed to load tiers")
	ErrInvalidTierConfiguration = errors.New("tier: invalid tier configuration")
)

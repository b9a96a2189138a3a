package pedon

import (
	"errors"
	"fmt"
)

// ErrEmptySelection is returned by operations that require at least some
// usable data, such as pairwise dissimilarity over fewer than two profiles.
// Ragged selection does NOT return it: an empty clipped profile is a valid
// result the caller branches on.
var ErrEmptySelection = errors.New("empty selection")

// DepthLogicError reports invalid depth logic within a profile: an inverted
// horizon (top >= bottom) or two overlapping horizons. It is never repaired
// silently.
type DepthLogicError struct {
	ProfileID    string
	HorizonIndex int
	Reason       string
}

func (e *DepthLogicError) Error() string {
	return fmt.Sprintf("profile %s: horizon %d: %s", e.ProfileID, e.HorizonIndex, e.Reason)
}

// LinkError reports a horizon, site, or feature row referencing a profile key
// absent from the other relation.
type LinkError struct {
	Relation  string // "horizons", "sites", "diagnostics", "restrictions"
	ProfileID string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s row references unknown profile %s", e.Relation, e.ProfileID)
}

// ShapeError reports a per-profile apply result whose length does not match
// the profile's horizon count. It fails the whole apply call.
type ShapeError struct {
	ProfileID string
	Got       int
	Want      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("profile %s: result length %d does not match horizon count %d", e.ProfileID, e.Got, e.Want)
}

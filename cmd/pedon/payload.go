package main

import (
	"math"

	"github.com/soildata/pedon/pkg/pedon"
)

// Serializable shapes for the export formats. Horizon and site attributes
// come through as tagged values; unresolved bottoms become null.

type horizonOut struct {
	ID        string                 `json:"id" msgpack:"id"`
	ProfileID string                 `json:"profile_id" msgpack:"profile_id"`
	Top       float64                `json:"top" msgpack:"top"`
	Bottom    *float64               `json:"bottom" msgpack:"bottom"`
	Attrs     map[string]pedon.Value `json:"attributes" msgpack:"attributes"`
}

type profileOut struct {
	ID       string                 `json:"id" msgpack:"id"`
	Site     map[string]pedon.Value `json:"site" msgpack:"site"`
	Horizons []horizonOut           `json:"horizons" msgpack:"horizons"`
}

type validationOut struct {
	Valid       bool       `json:"valid" msgpack:"valid"`
	BadProfiles []string   `json:"bad_profiles,omitempty" msgpack:"bad_profiles"`
	Issues      []issueOut `json:"issues,omitempty" msgpack:"issues"`
}

type issueOut struct {
	ProfileID    string `json:"profile_id" msgpack:"profile_id"`
	HorizonIndex int    `json:"horizon_index" msgpack:"horizon_index"`
	Kind         string `json:"kind" msgpack:"kind"`
}

func profilePayload(p *pedon.Profile) profileOut {
	out := profileOut{
		ID:       p.ID,
		Site:     p.Site.Attrs,
		Horizons: make([]horizonOut, 0, len(p.Horizons)),
	}
	for i := range p.Horizons {
		h := &p.Horizons[i]
		ho := horizonOut{
			ID:        h.ID,
			ProfileID: h.ProfileID,
			Top:       h.Top,
			Attrs:     h.Attrs,
		}
		if !math.IsNaN(h.Bottom) {
			bottom := h.Bottom
			ho.Bottom = &bottom
		}
		out.Horizons = append(out.Horizons, ho)
	}
	return out
}

func collectionPayload(c *pedon.Collection) []profileOut {
	out := make([]profileOut, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		out = append(out, profilePayload(c.Profile(i)))
	}
	return out
}

func validationPayload(r *pedon.Report) validationOut {
	out := validationOut{
		Valid:       r.Valid(),
		BadProfiles: r.BadProfiles,
	}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, issueOut{
			ProfileID:    issue.ProfileID,
			HorizonIndex: issue.HorizonIndex,
			Kind:         issue.Kind.String(),
		})
	}
	return out
}

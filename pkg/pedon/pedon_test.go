package pedon

import (
	"errors"
	"math"
	"testing"
)

func horizonRec(profile string, top, bottom float64, attrs map[string]Value) HorizonRecord {
	return HorizonRecord{ProfileID: profile, Top: top, Bottom: bottom, Attrs: attrs}
}

func testCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := Build(
		[]HorizonRecord{
			horizonRec("A", 0, 10, map[string]Value{"clay": Num(20), "group": Cat("loam")}),
			horizonRec("A", 10, 20, map[string]Value{"clay": Num(30), "group": Cat("loam")}),
			horizonRec("B", 0, 15, map[string]Value{"clay": Num(25), "group": Cat("sand")}),
		},
		[]SiteRecord{
			{ProfileID: "A", Attrs: map[string]Value{"region": Cat("north")}},
			{ProfileID: "B", Attrs: map[string]Value{"region": Cat("south")}},
		},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return c
}

func TestBuild(t *testing.T) {
	c := testCollection(t)

	if c.Len() != 2 {
		t.Fatalf("expected 2 profiles, got %d", c.Len())
	}
	if c.HorizonCount() != 3 {
		t.Errorf("expected 3 horizons, got %d", c.HorizonCount())
	}
	if got := c.IDs(); got[0] != "A" || got[1] != "B" {
		t.Errorf("expected profile order [A B], got %v", got)
	}

	a, ok := c.ProfileByID("A")
	if !ok {
		t.Fatal("profile A not found")
	}
	if len(a.Horizons) != 2 {
		t.Fatalf("expected 2 horizons for A, got %d", len(a.Horizons))
	}
	if a.Horizons[0].ID == "" || a.Horizons[0].ID == a.Horizons[1].ID {
		t.Error("horizon IDs should be unique and non-empty")
	}
	if a.MaxDepth() != 20 {
		t.Errorf("expected max depth 20, got %g", a.MaxDepth())
	}
	if region, _ := a.Site.Attr("region").Category(); region != "north" {
		t.Errorf("expected site region north, got %q", region)
	}
}

func TestBuildOrphanedHorizon(t *testing.T) {
	_, err := Build(
		[]HorizonRecord{horizonRec("X", 0, 10, nil)},
		[]SiteRecord{{ProfileID: "A"}},
	)
	var linkErr *LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("expected LinkError, got %v", err)
	}
	if linkErr.ProfileID != "X" {
		t.Errorf("expected offending profile X, got %s", linkErr.ProfileID)
	}
}

func TestBuildSiteOnlyProfile(t *testing.T) {
	c, err := Build(
		[]HorizonRecord{horizonRec("A", 0, 10, nil)},
		[]SiteRecord{{ProfileID: "A"}, {ProfileID: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	b, ok := c.ProfileByID("B")
	if !ok {
		t.Fatal("site-only profile B should exist")
	}
	if len(b.Horizons) != 0 {
		t.Errorf("expected 0 horizons for B, got %d", len(b.Horizons))
	}
}

func TestBuildDuplicateSite(t *testing.T) {
	_, err := Build(nil, []SiteRecord{{ProfileID: "A"}, {ProfileID: "A"}})
	if err == nil {
		t.Fatal("expected error for duplicate site row")
	}
}

func TestAttachFeatures(t *testing.T) {
	c := testCollection(t)

	err := c.AttachDiagnostics([]Feature{
		{ProfileID: "A", Kind: "argillic", Top: 10, Bottom: 20},
		{ProfileID: "A", Kind: "ochric", Top: 0, Bottom: 10},
	})
	if err != nil {
		t.Fatalf("unexpected attach error: %v", err)
	}
	a, _ := c.ProfileByID("A")
	if len(a.Diagnostics) != 2 {
		t.Errorf("expected 2 diagnostics, got %d", len(a.Diagnostics))
	}

	err = c.AttachRestrictions([]Feature{{ProfileID: "Z", Kind: "bedrock", Top: 50}})
	var linkErr *LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("expected LinkError for unknown profile, got %v", err)
	}
}

func TestSubsetByKeys(t *testing.T) {
	c := testCollection(t)

	sub, err := c.SubsetByKeys([]string{"B"})
	if err != nil {
		t.Fatalf("unexpected subset error: %v", err)
	}
	if sub.Len() != 1 || sub.IDs()[0] != "B" {
		t.Errorf("expected subset [B], got %v", sub.IDs())
	}

	if _, err := c.SubsetByKeys([]string{"Z"}); err == nil {
		t.Error("expected error for unknown key")
	}

	// Subsetting must not mutate the source collection.
	if c.Len() != 2 {
		t.Errorf("source collection changed size to %d", c.Len())
	}
}

func TestFilter(t *testing.T) {
	c := testCollection(t)
	sub, err := c.Filter(func(p *Profile) bool {
		region, _ := p.Site.Attr("region").Category()
		return region == "south"
	})
	if err != nil {
		t.Fatalf("unexpected filter error: %v", err)
	}
	if sub.Len() != 1 || sub.IDs()[0] != "B" {
		t.Errorf("expected filtered [B], got %v", sub.IDs())
	}
}

func TestPromoteToSite(t *testing.T) {
	c := testCollection(t)

	promoted, err := c.PromoteToSite("group")
	if err != nil {
		t.Fatalf("unexpected promote error: %v", err)
	}
	a, _ := promoted.ProfileByID("A")
	if group, _ := a.Site.Attr("group").Category(); group != "loam" {
		t.Errorf("expected promoted group loam, got %q", group)
	}
	for i := range a.Horizons {
		if !a.Horizons[i].Attr("group").IsMissing() {
			t.Errorf("horizon %d should no longer carry group", i)
		}
	}

	// clay differs across A's horizons and must refuse promotion.
	if _, err := c.PromoteToSite("clay"); err == nil {
		t.Error("expected error promoting non-constant attribute")
	}
}

func TestDemoteToHorizons(t *testing.T) {
	c := testCollection(t)
	demoted, err := c.DemoteToHorizons("region")
	if err != nil {
		t.Fatalf("unexpected demote error: %v", err)
	}
	a, _ := demoted.ProfileByID("A")
	if !a.Site.Attr("region").IsMissing() {
		t.Error("region should be removed from site after demotion")
	}
	for i := range a.Horizons {
		if region, _ := a.Horizons[i].Attr("region").Category(); region != "north" {
			t.Errorf("horizon %d: expected region north, got %q", i, region)
		}
	}
}

func TestPromoteDemoteRoundTrip(t *testing.T) {
	c := testCollection(t)
	up, err := c.PromoteToSite("group")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	down, err := up.DemoteToHorizons("group")
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	a, _ := down.ProfileByID("A")
	for i := range a.Horizons {
		if group, _ := a.Horizons[i].Attr("group").Category(); group != "loam" {
			t.Errorf("horizon %d: expected group loam after round trip, got %q", i, group)
		}
	}
}

func TestOpenBottom(t *testing.T) {
	c, err := Build(
		[]HorizonRecord{
			horizonRec("A", 0, 30, nil),
			horizonRec("A", 30, math.NaN(), nil),
		},
		[]SiteRecord{{ProfileID: "A"}},
	)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	a, _ := c.ProfileByID("A")
	if a.Horizons[1].HasBottom() {
		t.Error("second horizon should have an unresolved bottom")
	}
	if a.MaxDepth() != 30 {
		t.Errorf("expected max depth 30 (open bottom ignored), got %g", a.MaxDepth())
	}
}

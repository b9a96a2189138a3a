package pedon

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// SiteFunc maps one profile to a record of new site attributes.
type SiteFunc func(*Profile) (map[string]Value, error)

// HorizonFunc maps one profile to a value sequence aligned to its horizons.
type HorizonFunc func(*Profile) ([]Value, error)

// CollectFunc maps one profile to a single value.
type CollectFunc func(*Profile) (Value, error)

// forEachProfile runs fn over every profile on a bounded worker pool.
// Profiles are independent; each invocation owns its index slot, and results
// are merged by the caller in collection order. The returned error joins the
// per-profile failures.
func (c *Collection) forEachProfile(workers int, fn func(i int, p *Profile) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	errs := make([]error, len(c.profiles))
	var wg sync.WaitGroup
	for i, p := range c.profiles {
		i, p := i, p
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			errs[i] = fn(i, p)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

// ApplyToSites applies f independently to every profile and merges each
// returned record into that profile's site attributes, producing a new
// Collection in the original profile order. workers <= 0 uses GOMAXPROCS.
func (c *Collection) ApplyToSites(workers int, f SiteFunc) (*Collection, error) {
	profiles := make([]*Profile, len(c.profiles))
	err := c.forEachProfile(workers, func(i int, p *Profile) error {
		rec, err := f(p)
		if err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
		cp := p.Clone()
		for name, v := range rec {
			cp.Site.Attrs[name] = v
		}
		profiles[i] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromProfiles(profiles)
}

// ApplyToHorizons applies f independently to every profile and stores the
// returned sequence as a new horizon attribute, aligned by horizon order.
// A length mismatch for any profile is a ShapeError failing the whole call.
func (c *Collection) ApplyToHorizons(workers int, name string, f HorizonFunc) (*Collection, error) {
	profiles := make([]*Profile, len(c.profiles))
	err := c.forEachProfile(workers, func(i int, p *Profile) error {
		seq, err := f(p)
		if err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
		if len(seq) != len(p.Horizons) {
			return &ShapeError{ProfileID: p.ID, Got: len(seq), Want: len(p.Horizons)}
		}
		cp := p.Clone()
		for j := range cp.Horizons {
			cp.Horizons[j].Attrs[name] = seq[j]
		}
		profiles[i] = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromProfiles(profiles)
}

// Collect applies f independently to every profile and returns one value per
// profile, in collection order.
func (c *Collection) Collect(workers int, f CollectFunc) ([]Value, error) {
	out := make([]Value, len(c.profiles))
	err := c.forEachProfile(workers, func(i int, p *Profile) error {
		v, err := f(p)
		if err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

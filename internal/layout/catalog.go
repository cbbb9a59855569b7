package layout

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownFamily is returned for a family id the catalog does not hold.
// Selecting a layout is a closed decision; this is a caller error.
var ErrUnknownFamily = errors.New("unknown layout family")

// Catalog is an immutable set of layout families. It is safe to share
// across goroutines.
type Catalog struct {
	families map[FamilyID]*Family
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog with the GENERAL and EQUIPMENT
// families. The same instance is returned on every call.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog(generalFamily(), equipmentFamily())
	})
	return defaultCatalog
}

// NewCatalog builds a catalog from families. Later families replace earlier
// ones with the same id.
func NewCatalog(families ...*Family) *Catalog {
	c := &Catalog{families: make(map[FamilyID]*Family, len(families))}
	for _, f := range families {
		c.families[f.ID] = f.clone()
	}
	return c
}

// With returns a copy of c where families replace the ones with the same id.
func (c *Catalog) With(families ...*Family) *Catalog {
	all := make([]*Family, 0, len(c.families)+len(families))
	for _, f := range c.families {
		all = append(all, f)
	}
	return NewCatalog(append(all, families...)...)
}

// Family returns the family for id.
func (c *Catalog) Family(id FamilyID) (*Family, error) {
	f, ok := c.families[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, id)
	}
	return f, nil
}

// Families lists the catalog's families sorted by id.
func (c *Catalog) Families() []*Family {
	out := make([]*Family, 0, len(c.families))
	for _, f := range c.families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks every family in the catalog.
func (c *Catalog) Validate() error {
	var errs []error
	for _, f := range c.Families() {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

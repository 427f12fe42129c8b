package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrEmptyCatalog = errors.New("remote catalog is empty")
	ErrUnknownTier  = errors.New("unknown tier")
	ErrNoSource     = errors.New("no catalog source configured")
)

// Source is the backend a catalog is loaded from and saved to.
type Source interface {
	FetchTiers(ctx context.Context) ([]Tier, error)
	SaveTier(ctx context.Context, tier Tier) error
}

// Catalog is the ordered set of tiers currently offered. It starts from the
// compiled-in defaults and is replaced as a whole, never partially.
type Catalog struct {
	mu       sync.RWMutex
	tiers    []Tier
	remote   bool
	source   Source
	validate *validator.Validate
}

// NewCatalog returns a catalog holding the defaults. source may be nil.
func NewCatalog(source Source) *Catalog {
	return &Catalog{
		tiers:    DefaultTiers(),
		source:   source,
		validate: validator.New(),
	}
}

// All returns copies of the tiers in catalog order.
func (c *Catalog) All() []Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Tier, len(c.tiers))
	for i, t := range c.tiers {
		out[i] = t.clone()
	}
	return out
}

func (c *Catalog) ByID(id string) (Tier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.tiers {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return Tier{}, false
}

// IsRemote reports whether the current tiers came from the source.
func (c *Catalog) IsRemote() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote
}

// Validate checks a single tier against its field constraints.
func (c *Catalog) Validate(t Tier) error {
	if err := c.validate.Struct(t); err != nil {
		return fmt.Errorf("tier %q: %w", t.ID, err)
	}
	return nil
}

// LoadRemote fetches the catalog from the source and replaces the current
// tiers on success. On any failure the current tiers stay in place.
func (c *Catalog) LoadRemote(ctx context.Context) error {
	if c.source == nil {
		return ErrNoSource
	}

	tiers, err := c.source.FetchTiers(ctx)
	if err != nil {
		log.Printf("Warning: [Catalog] failed to load remote catalog, keeping current tiers: %v", err)
		return fmt.Errorf("fetch catalog: %w", err)
	}
	if err := c.replace(tiers, true); err != nil {
		log.Printf("Warning: [Catalog] rejected remote catalog, keeping current tiers: %v", err)
		return err
	}
	log.Printf("[Catalog] Loaded %d tiers from remote source", len(tiers))
	return nil
}

// ReplaceCatalog swaps in tiers. Every tier must validate and ids must be
// unique, otherwise nothing changes.
func (c *Catalog) ReplaceCatalog(tiers []Tier) error {
	return c.replace(tiers, false)
}

func (c *Catalog) replace(tiers []Tier, remote bool) error {
	if len(tiers) == 0 {
		return ErrEmptyCatalog
	}

	next := make([]Tier, 0, len(tiers))
	seen := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		if err := c.Validate(t); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("tier %q: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.BasePrice.Monthly > 0 && t.BasePrice.Yearly > t.BasePrice.Monthly*12 {
			log.Printf("Warning: [Catalog] tier %q yearly price %.2f exceeds twelve monthly payments", t.ID, t.BasePrice.Yearly)
		}
		next = append(next, t.clone())
	}

	c.mu.Lock()
	c.tiers = next
	c.remote = remote
	c.mu.Unlock()
	return nil
}

// SaveTier validates tier, writes it to the source and reloads the catalog.
// A tier without id gets a generated one. The saved tier is returned.
func (c *Catalog) SaveTier(ctx context.Context, tier Tier) (Tier, error) {
	if c.source == nil {
		return Tier{}, ErrNoSource
	}
	if tier.ID == "" {
		tier.ID = "tier_" + uuid.New().String()
	}
	if err := c.Validate(tier); err != nil {
		return Tier{}, err
	}
	if err := c.source.SaveTier(ctx, tier); err != nil {
		return Tier{}, fmt.Errorf("save tier %q: %w", tier.ID, err)
	}
	if err := c.LoadRemote(ctx); err != nil {
		log.Printf("Warning: [Catalog] tier %q saved but reload failed: %v", tier.ID, err)
	}
	return tier, nil
}

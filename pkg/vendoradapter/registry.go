package vendoradapter

import (
	"fmt"
	"sync"

	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// Registry builds and caches the one Adapter instance each configured city
// needs, keyed by (vendor, slug) — adapters are stateless per spec.md §4.1,
// so building once per city and reusing it across poll cycles avoids
// needless allocation without reintroducing any per-vendor global state
// (spec.md §9's explicit-handle note).
type Registry struct {
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter

	mu       sync.Mutex
	adapters map[string]Adapter
}

// NewRegistry constructs a Registry sharing one Fetcher and one RateLimiter
// handle across every adapter it builds.
func NewRegistry(fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) *Registry {
	return &Registry{
		fetcher:  fetcher,
		limiter:  limiter,
		adapters: make(map[string]Adapter),
	}
}

// For returns the Adapter for city, building and caching it on first use.
// legistarToken is consulted only for legistar cities (spec.md §4.1: "Token
// passed as token= query parameter when configured per-client").
func (r *Registry) For(city models.City, legistarToken string) (Adapter, error) {
	key := fmt.Sprintf("%s:%s", city.Vendor, city.Slug)

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[key]; ok {
		return a, nil
	}

	a, err := r.build(city, legistarToken)
	if err != nil {
		return nil, err
	}
	r.adapters[key] = a
	return a, nil
}

func (r *Registry) build(city models.City, legistarToken string) (Adapter, error) {
	switch city.Vendor {
	case models.VendorPrimeGov:
		return NewPrimeGovAdapter(city.Slug, r.fetcher, r.limiter)
	case models.VendorCivicClerk:
		return NewCivicClerkAdapter(city.Slug, r.fetcher, r.limiter)
	case models.VendorLegistar:
		return NewLegistarAdapter(city.Slug, legistarToken, r.fetcher, r.limiter)
	case models.VendorGranicus:
		return NewGranicusAdapter(city.Slug, r.fetcher, r.limiter)
	case models.VendorCivicPlus:
		return NewCivicPlusAdapter(city.Slug, r.fetcher, r.limiter)
	case models.VendorNovusAgenda:
		return NewNovusAgendaAdapter(city.Slug, r.fetcher, r.limiter)
	case models.VendorMunicode:
		return NewMunicodeAdapter(city.Slug, r.fetcher, r.limiter)
	default:
		return nil, fmt.Errorf("no adapter for vendor %q", city.Vendor)
	}
}

// Package vendoradapter reconciles the heterogeneous public APIs and HTML
// portals of the civic-software vendors listed in spec.md §4.1 into the
// common NormalizedMeeting / AgendaDetail model (pkg/models).
//
// Grounded on original_source/app/adapters.py (PrimeGov, CivicClerk wire
// formats) and infocore/adapters/html_agenda_parser.py (PrimeGov item-mode
// HTML parsing, participation-info regexes), with Legistar/Granicus/
// CivicPlus/NovusAgenda/Municode rules taken directly from spec.md §4.1.
// HTML scraping throughout uses github.com/PuerkitoBio/goquery.
//
// Per spec.md §9's re-architecture note, the source's dynamic per-vendor
// polymorphism becomes a closed set of adapter variants behind the Adapter
// interface below, with an explicit RateLimiter/HTTPFetcher handle threaded
// through each constructor rather than a global singleton.
package vendoradapter

import (
	"context"
	"fmt"

	"github.com/engagic/pipeline/pkg/models"
)

// Adapter is the common capability every vendor adapter implements
// (spec.md §4.1).
type Adapter interface {
	// Vendor identifies which vendor this adapter speaks.
	Vendor() models.Vendor

	// UpcomingMeetings lists a city's upcoming meetings, ordered by start
	// time ascending then vendor meeting ID (spec.md §4.1(iv)).
	UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error)

	// FetchAgenda resolves item-level detail for a meeting whose adapter
	// exposes an HTML item-level agenda. Adapters that only ever produce
	// monolithic packets return (nil, nil).
	FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error)
}

// AdapterError wraps any adapter-raised error with enough context for the
// conductor to log and skip the city for this cycle, instead of crashing
// (spec.md §4.1(iii), §7).
type AdapterError struct {
	Vendor    models.Vendor
	Slug      string
	Operation string
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error: vendor=%s slug=%s op=%s: %v", e.Vendor, e.Slug, e.Operation, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Retryable reports whether the conductor should retry the operation in a
// later poll cycle rather than treating it as a hard failure. Adapter
// errors are always "skip this city for this cycle", which the conductor
// implements by simply trying again on the next poll tick — so this is
// never retried within the same cycle.
func (e *AdapterError) Retryable() bool { return false }

func wrapErr(vendor models.Vendor, slug, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AdapterError{Vendor: vendor, Slug: slug, Operation: op, Err: err}
}

// requireSlug enforces spec.md §4.1(i): adapters reject blank slugs at
// construction.
func requireSlug(slug string) error {
	if slug == "" {
		return models.ErrBlankSlug
	}
	return nil
}

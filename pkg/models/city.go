// Package models defines the normalized entity model shared by every vendor
// adapter, the store, the queue, and the processor: cities, meetings, items,
// attachments, recurring matters, and queue payloads.
package models

import (
	"fmt"
	"regexp"
)

// Vendor identifies the civic-government software provider hosting a city's
// public meeting portal.
type Vendor string

// Supported vendors (spec.md §3, §4.1).
const (
	VendorPrimeGov    Vendor = "primegov"
	VendorGranicus    Vendor = "granicus"
	VendorCivicClerk  Vendor = "civicclerk"
	VendorLegistar    Vendor = "legistar"
	VendorCivicPlus   Vendor = "civicplus"
	VendorNovusAgenda Vendor = "novusagenda"
	VendorMunicode    Vendor = "municode"
)

// CityStatus tracks whether the conductor should keep polling a city.
type CityStatus string

// City lifecycle states.
const (
	CityStatusActive   CityStatus = "active"
	CityStatusInactive CityStatus = "inactive"
)

// bananaPattern is the canonical city-key shape: lowercase alphanumeric city
// token concatenated with an uppercase 2-letter state code, e.g. "paloaltoCA".
var bananaPattern = regexp.MustCompile(`^[a-z0-9]+[A-Z]{2}$`)

// ValidateBanana checks a banana string against spec.md §8's invariant:
// ∀ city c: banana(c) matches ^[a-z0-9]+[A-Z]{2}$.
func ValidateBanana(banana string) error {
	if !bananaPattern.MatchString(banana) {
		return fmt.Errorf("%w: %q does not match ^[a-z0-9]+[A-Z]{2}$", ErrInvalidBanana, banana)
	}
	return nil
}

// City is a jurisdiction we ingest (spec.md §3).
type City struct {
	Banana      string     `db:"banana" json:"banana"`
	DisplayName string     `db:"display_name" json:"display_name"`
	State       string     `db:"state" json:"state"`
	Vendor      Vendor     `db:"vendor" json:"vendor"`
	Slug        string     `db:"slug" json:"slug"`
	Status      CityStatus `db:"status" json:"status"`
}

// Active reports whether the conductor should poll this city.
func (c City) Active() bool {
	return c.Status == CityStatusActive
}

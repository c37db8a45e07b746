package models

import "errors"

// Sentinel validation errors. These indicate a bug in the calling code, not a
// recoverable runtime condition — per spec.md §7 ("ValidationError ... Never
// caught; indicates a bug"), callers should not treat these as retryable.
var (
	// ErrInvalidBanana is returned when a city's banana fails the
	// ^[a-z0-9]+[A-Z]{2}$ pattern required by spec.md §8.
	ErrInvalidBanana = errors.New("invalid banana")

	// ErrPacketAgendaExclusivity is returned when a meeting write would
	// violate the "exactly one of packet_url/agenda_url" invariant.
	ErrPacketAgendaExclusivity = errors.New("meeting must have exactly one of packet_url or agenda_url")

	// ErrBlankSlug is returned by adapter constructors when given an empty
	// vendor slug (spec.md §4.1(i)).
	ErrBlankSlug = errors.New("vendor slug must not be blank")
)

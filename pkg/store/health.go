package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// HealthStats is the counts-by-status/vendor/processing_status snapshot
// spec.md §4.5 requires.
type HealthStats struct {
	CitiesByStatus      map[string]int `json:"cities_by_status"`
	MeetingsByStatus    map[string]int `json:"meetings_by_processing_status"`
	MeetingsByVendor    map[string]int `json:"meetings_by_vendor"`
	QueueByStatus       map[string]int `json:"queue_by_status"`
	ContaminatedCities  []string       `json:"contaminated_cities,omitempty"`
}

// HealthStats aggregates counts across cities, meetings, and the queue, and
// runs the cross-contamination check (spec.md §4.5, §8 scenario 6).
func (s *Store) HealthStats(ctx context.Context) (HealthStats, error) {
	stats := HealthStats{
		CitiesByStatus:   map[string]int{},
		MeetingsByStatus: map[string]int{},
		MeetingsByVendor: map[string]int{},
		QueueByStatus:    map[string]int{},
	}

	if err := groupCount(ctx, s, "SELECT status, COUNT(*) FROM cities GROUP BY status", stats.CitiesByStatus); err != nil {
		return HealthStats{}, err
	}
	if err := groupCount(ctx, s, "SELECT processing_status, COUNT(*) FROM meetings GROUP BY processing_status", stats.MeetingsByStatus); err != nil {
		return HealthStats{}, err
	}
	if err := groupCount(ctx, s, `
		SELECT c.vendor, COUNT(*) FROM meetings m JOIN cities c ON c.banana = m.banana GROUP BY c.vendor
	`, stats.MeetingsByVendor); err != nil {
		return HealthStats{}, err
	}
	if err := groupCount(ctx, s, "SELECT status, COUNT(*) FROM queue GROUP BY status", stats.QueueByStatus); err != nil {
		return HealthStats{}, err
	}

	contaminated, err := s.findCrossContamination(ctx)
	if err != nil {
		return HealthStats{}, err
	}
	stats.ContaminatedCities = contaminated

	return stats, nil
}

func groupCount(ctx context.Context, s *Store, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("running %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scanning group count: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Slug-extraction regexes, ported 1:1 from
// original_source/scripts/verify_cross_contamination.py's
// extract_slug_from_url.
var (
	primeGovHostPattern   = regexp.MustCompile(`^([^.]+)\.primegov\.com$`)
	civicClerkHostPattern = regexp.MustCompile(`^([^.]+)\.api\.civicclerk\.com$`)
	legistarHostPattern   = regexp.MustCompile(`^([^.]+)\.legistar1?\.com$`)
	novusAgendaHostPattern = regexp.MustCompile(`^([^.]+)\.novusagenda\.com$`)
	civicPlusHostPattern  = regexp.MustCompile(`^([^.]+)\.civicplus\.com$`)
	granicusS3Pattern     = regexp.MustCompile(`granicus_production_attachments/([^/]+)/`)
)

// extractSlugFromURL recovers the vendor slug embedded in a meeting's
// packet_url or agenda_url, so findCrossContamination can compare the slugs
// across a city's meetings. The city's configured slug is not consulted.
func extractSlugFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "primegov.com"):
		if m := primeGovHostPattern.FindStringSubmatch(host); m != nil {
			return m[1]
		}
	case strings.Contains(host, "civicclerk.com"):
		if m := civicClerkHostPattern.FindStringSubmatch(host); m != nil {
			return m[1]
		}
	case strings.Contains(host, "legistar.com"), strings.Contains(host, "legistar1.com"):
		if m := legistarHostPattern.FindStringSubmatch(host); m != nil {
			return m[1]
		}
	case strings.Contains(host, "novusagenda.com"):
		if m := novusAgendaHostPattern.FindStringSubmatch(host); m != nil {
			return m[1]
		}
	case strings.Contains(host, "civicplus.com"):
		if m := civicPlusHostPattern.FindStringSubmatch(host); m != nil {
			return m[1]
		}
	case strings.Contains(host, "s3.amazonaws.com"):
		if m := granicusS3Pattern.FindStringSubmatch(strings.ToLower(rawURL)); m != nil {
			return m[1]
		}
	}
	return ""
}

// findCrossContamination flags cities whose meetings carry packet/agenda
// URLs resolving to more than one distinct vendor slug (spec.md §8
// scenario 6): meetings from city A stored under city B. A city whose
// meetings all carry one and the same slug is not flagged, even when that
// slug differs from the city's own.
func (s *Store) findCrossContamination(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT banana, COALESCE(packet_url, agenda_url) FROM meetings
		WHERE packet_url IS NOT NULL OR agenda_url IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("scanning meeting URLs for cross-contamination check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slugsByCity := make(map[string]map[string]bool)
	for rows.Next() {
		var banana, rawURL string
		if err := rows.Scan(&banana, &rawURL); err != nil {
			return nil, fmt.Errorf("scanning cross-contamination row: %w", err)
		}
		slug := extractSlugFromURL(rawURL)
		if slug == "" {
			continue
		}
		if slugsByCity[banana] == nil {
			slugsByCity[banana] = make(map[string]bool)
		}
		slugsByCity[banana][slug] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var contaminated []string
	for banana, slugs := range slugsByCity {
		if len(slugs) > 1 {
			contaminated = append(contaminated, banana)
		}
	}
	return contaminated, nil
}

package vendoradapter

import (
	"net/url"
	"testing"
	"time"

	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

// TestCivicClerkAdapter_DateFilter is spec.md §8 scenario 2.
func TestCivicClerkAdapter_DateFilter(t *testing.T) {
	adapter, err := NewCivicClerkAdapter("montpeliervt", httpfetch.New("engagic-test/1.0", httpfetch.ListingTimeout), ratelimit.New(nil))
	require.NoError(t, err)

	wallClock := time.Date(2025, 11, 13, 9, 0, 0, 0, time.UTC)
	raw := adapter.eventsURL(wallClock)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()

	require.Equal(t, "startDateTime gt 2025-11-13T09:00:00.000Z", q.Get("$filter"))
	require.Equal(t, "startDateTime asc, eventName asc", q.Get("$orderby"))
}

func TestNewCivicClerkAdapter_RejectsBlankSlug(t *testing.T) {
	_, err := NewCivicClerkAdapter("", httpfetch.New("engagic-test/1.0", httpfetch.ListingTimeout), ratelimit.New(nil))
	require.Error(t, err)
}

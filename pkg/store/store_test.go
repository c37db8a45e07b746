package store

import (
	"context"
	"testing"
	"time"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertCity_AndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	city := models.City{Banana: "paloaltoCA", DisplayName: "Palo Alto", State: "CA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}
	require.NoError(t, s.UpsertCity(ctx, city))

	cities, err := s.ListCities(ctx, CityFilter{})
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.Equal(t, "Palo Alto", cities[0].DisplayName)

	// Re-upsert with a changed display name is idempotent by banana.
	city.DisplayName = "City of Palo Alto"
	require.NoError(t, s.UpsertCity(ctx, city))
	cities, err = s.ListCities(ctx, CityFilter{})
	require.NoError(t, err)
	require.Len(t, cities, 1)
	require.Equal(t, "City of Palo Alto", cities[0].DisplayName)
}

func TestUpsertCity_RejectsInvalidBanana(t *testing.T) {
	s := newTestStore(t)
	err := s.UpsertCity(context.Background(), models.City{Banana: "bad-banana"})
	require.ErrorIs(t, err, models.ErrInvalidBanana)
}

func TestUpsertMeetings_IdempotentNoChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}))

	nm := models.NormalizedMeeting{VendorMeetingID: "1001", Title: "City Council", Start: time.Date(2025, 11, 20, 19, 0, 0, 0, time.UTC), PacketURL: "https://cityofpaloalto.primegov.com/Public/CompiledDocument?x=1"}

	changed, err := s.UpsertMeetings(ctx, "paloaltoCA", []models.NormalizedMeeting{nm})
	require.NoError(t, err)
	require.Len(t, changed, 1)

	// Re-running the same poll with no upstream changes: zero new rows.
	changed, err = s.UpsertMeetings(ctx, "paloaltoCA", []models.NormalizedMeeting{nm})
	require.NoError(t, err)
	require.Len(t, changed, 0)
}

func TestUpsertItemsAndAttachments_ReplacesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}))

	nm := models.NormalizedMeeting{VendorMeetingID: "1001", Title: "City Council", Start: time.Now(), PacketURL: "https://cityofpaloalto.primegov.com/x"}
	_, err := s.UpsertMeetings(ctx, "paloaltoCA", []models.NormalizedMeeting{nm})
	require.NoError(t, err)

	mid := meetingID("paloaltoCA", "1001")
	items := []models.Item{{ID: "1", Sequence: 1, Title: "Approve minutes"}}
	attachments := map[string][]models.Attachment{
		"1": {{DisplayName: "Staff Report", URL: "https://x/a.pdf"}},
	}
	require.NoError(t, s.UpsertItemsAndAttachments(ctx, mid, items, attachments))

	loadedItems, loadedAtts, err := s.ItemsForMeeting(ctx, mid)
	require.NoError(t, err)
	require.Len(t, loadedItems, 1)
	require.Len(t, loadedAtts[loadedItems[0].ID], 1)

	// Replacing with an empty set clears everything atomically.
	require.NoError(t, s.UpsertItemsAndAttachments(ctx, mid, nil, nil))
	loadedItems, _, err = s.ItemsForMeeting(ctx, mid)
	require.NoError(t, err)
	require.Len(t, loadedItems, 0)
}

func TestExtractSlugFromURL(t *testing.T) {
	cases := map[string]string{
		"https://cityofpaloalto.primegov.com/Public/CompiledDocument?x=1": "cityofpaloalto",
		"https://s3.amazonaws.com/granicus_production_attachments/someothercity/packet.pdf": "someothercity",
		"not a url at all": "",
	}
	for in, want := range cases {
		require.Equal(t, want, extractSlugFromURL(in), in)
	}
}

// TestHealthStats_CrossContaminationDetect is spec.md §8 scenario 6.
func TestHealthStats_CrossContaminationDetect(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "santamariaCA", Vendor: models.VendorGranicus, Slug: "santamaria", Status: models.CityStatusActive}))

	ok := models.NormalizedMeeting{VendorMeetingID: "1", Title: "Regular meeting", Start: time.Now(), PacketURL: "https://s3.amazonaws.com/granicus_production_attachments/santamaria/a.pdf"}
	contaminated := models.NormalizedMeeting{VendorMeetingID: "2", Title: "Wrong city meeting", Start: time.Now(), PacketURL: "https://s3.amazonaws.com/granicus_production_attachments/someothercity/b.pdf"}

	_, err := s.UpsertMeetings(ctx, "santamariaCA", []models.NormalizedMeeting{ok, contaminated})
	require.NoError(t, err)

	stats, err := s.HealthStats(ctx)
	require.NoError(t, err)
	require.Contains(t, stats.ContaminatedCities, "santamariaCA")
}

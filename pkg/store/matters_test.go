package store

import (
	"context"
	"testing"
	"time"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/stretchr/testify/require"
)

// seedCityAndMeeting creates the city + meeting + item rows the matters
// tables' foreign keys require, and returns (meetingID, itemID for "1").
func seedCityAndMeeting(t *testing.T, s *Store) (string, string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}))

	nm := models.NormalizedMeeting{VendorMeetingID: "1001", Title: "City Council", Start: time.Now(), PacketURL: "https://cityofpaloalto.primegov.com/x"}
	_, err := s.UpsertMeetings(ctx, "paloaltoCA", []models.NormalizedMeeting{nm})
	require.NoError(t, err)

	mid := meetingID("paloaltoCA", "1001")
	items := []models.Item{{ID: "1", Sequence: 1, Title: "Approve minutes"}}
	require.NoError(t, s.UpsertItemsAndAttachments(ctx, mid, items, nil))

	return mid, itemID(mid, "1")
}

func TestUpsertMatter_IdempotentByBananaAndNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}))

	id, err := s.UpsertMatter(ctx, "paloaltoCA", "ORD-2025-11", "Zoning amendment")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := s.UpsertMatter(ctx, "paloaltoCA", "ORD-2025-11", "Zoning amendment (revised title)")
	require.NoError(t, err)
	require.Equal(t, id, again)

	matter, err := s.GetMatter(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Zoning amendment (revised title)", matter.Title)
}

func TestRecordMatterAppearance_DedupsSameTriple(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mid, iid := seedCityAndMeeting(t, s)

	matterID, err := s.UpsertMatter(ctx, "paloaltoCA", "ORD-2025-11", "Zoning amendment")
	require.NoError(t, err)

	require.NoError(t, s.RecordMatterAppearance(ctx, matterID, mid, iid))
	require.NoError(t, s.RecordMatterAppearance(ctx, matterID, mid, iid))

	var count int
	require.NoError(t, s.db.Get(&count, `SELECT COUNT(*) FROM matter_appearances WHERE matter_id = ?`, matterID))
	require.Equal(t, 1, count)
}

func TestRecordMatterSummary_MissingMatterErrors(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordMatterSummary(context.Background(), "matter:does-not-exist", "summary")
	require.Error(t, err)
}

func TestItemTitlesByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCity(ctx, models.City{Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive}))

	mid := meetingID("paloaltoCA", "1001")
	nm := models.NormalizedMeeting{VendorMeetingID: "1001", Title: "City Council", Start: time.Now(), PacketURL: "https://cityofpaloalto.primegov.com/x"}
	_, err := s.UpsertMeetings(ctx, "paloaltoCA", []models.NormalizedMeeting{nm})
	require.NoError(t, err)

	items := []models.Item{
		{ID: "1", Sequence: 1, Title: "Approve minutes"},
		{ID: "2", Sequence: 2, Title: "Adopt ordinance"},
	}
	require.NoError(t, s.UpsertItemsAndAttachments(ctx, mid, items, nil))

	itemID1 := itemID(mid, "1")
	itemID2 := itemID(mid, "2")

	titles, err := s.ItemTitlesByIDs(ctx, []string{itemID1, itemID2, "item:missing:missing:9"})
	require.NoError(t, err)
	require.Equal(t, "Approve minutes", titles[itemID1])
	require.Equal(t, "Adopt ordinance", titles[itemID2])
	require.NotContains(t, titles, "item:missing:missing:9")
}

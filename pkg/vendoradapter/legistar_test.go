package vendoradapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

const legistarEventItemsFixture = `[
  {
    "EventItemId": 501,
    "EventItemAgendaSequence": 1,
    "EventItemTitle": "Approve minutes",
    "EventItemMatterFile": "",
    "EventItemMatterAttachments": [
      {"MatterAttachmentName": "Staff Report Leg Ver1", "MatterAttachmentHyperlink": "https://x.legistar.com/v1.pdf"},
      {"MatterAttachmentName": "Staff Report Leg Ver2", "MatterAttachmentHyperlink": "https://x.legistar.com/v2.pdf"},
      {"MatterAttachmentName": "Exhibit A", "MatterAttachmentHyperlink": "https://x.legistar.com/a.pdf"}
    ]
  }
]`

// TestLegistarAdapter_FetchAgenda_VersionDedup is spec.md §8 scenario 3,
// exercised through the full adapter path.
func TestLegistarAdapter_FetchAgenda_VersionDedup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(legistarEventItemsFixture))
	}))
	defer server.Close()

	adapter, err := NewLegistarAdapter("testclient", "", httpfetch.New("engagic-test/1.0", httpfetch.ListingTimeout), ratelimit.New(nil))
	require.NoError(t, err)
	adapter.base = server.URL

	city := models.City{Banana: "testcityCA", Vendor: models.VendorLegistar, Slug: "testclient"}
	detail, err := adapter.FetchAgenda(context.Background(), city, models.NormalizedMeeting{VendorMeetingID: "501"})
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Items, 1)

	atts := detail.Attachments["501"]
	require.Len(t, atts, 2)
	require.Equal(t, "Staff Report Leg Ver2", atts[0].DisplayName)
	require.Equal(t, "Exhibit A", atts[1].DisplayName)
}

func TestNewLegistarAdapter_RejectsBlankClient(t *testing.T) {
	_, err := NewLegistarAdapter("", "", httpfetch.New("engagic-test/1.0", httpfetch.ListingTimeout), ratelimit.New(nil))
	require.ErrorIs(t, err, models.ErrBlankSlug)
}

package vendoradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// CivicClerkAdapter implements the CivicClerk rules in spec.md §4.1.
//
// SPEC_FULL.md §5 resolves the source's ambiguity between an
// URL-encoding and a non-encoding CivicClerk adapter in favor of
// URL-encoding the OData query string, since url.Values.Encode is the
// idiomatic Go way to build one and an unencoded "gt "/"," in a query
// string is invalid against a strict OData server.
type CivicClerkAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
	now     func() time.Time // overridable for tests
}

// NewCivicClerkAdapter constructs a CivicClerk adapter for citySlug.
func NewCivicClerkAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*CivicClerkAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &CivicClerkAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://%s.civicclerk.com", citySlug),
		fetcher: fetcher,
		limiter: limiter,
		now:     time.Now,
	}, nil
}

// Vendor implements Adapter.
func (a *CivicClerkAdapter) Vendor() models.Vendor { return models.VendorCivicClerk }

type civicClerkFile struct {
	FileID int    `json:"fileId"`
	Type   string `json:"type"`
}

type civicClerkEvent struct {
	ID            int               `json:"id"`
	EventName     string            `json:"eventName"`
	StartDateTime string            `json:"startDateTime"`
	PublishedFile []civicClerkFile  `json:"publishedFiles"`
	Extra         map[string]string `json:"-"`
}

// eventsURL builds the OData listing URL for spec.md §8 scenario 2: filter
// on events starting after now, ordered by start time then name.
func (a *CivicClerkAdapter) eventsURL(now time.Time) string {
	filter := fmt.Sprintf("startDateTime gt %s", now.UTC().Format("2006-01-02T15:04:05.000Z"))
	q := url.Values{}
	q.Set("$filter", filter)
	q.Set("$orderby", "startDateTime asc, eventName asc")
	return fmt.Sprintf("%s/v1/Events?%s", a.base, q.Encode())
}

// UpcomingMeetings implements Adapter (spec.md §4.1 CivicClerk rules).
func (a *CivicClerkAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorCivicClerk))

	listURL := a.eventsURL(a.now())
	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorCivicClerk, a.slug, "UpcomingMeetings", err)
	}

	var events []civicClerkEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, wrapErr(models.VendorCivicClerk, a.slug, "UpcomingMeetings", fmt.Errorf("decoding response: %w", err))
	}

	out := make([]models.NormalizedMeeting, 0, len(events))
	for _, ev := range events {
		fileID, ok := findAgendaPacketFile(ev.PublishedFile)
		if !ok {
			continue
		}

		start, _ := time.Parse(time.RFC3339, ev.StartDateTime)
		nm := models.NormalizedMeeting{
			VendorMeetingID: strconv.Itoa(ev.ID),
			Title:           ev.EventName,
			Start:           start,
			PacketURL:       a.packetURL(fileID),
		}
		if err := nm.Validate(); err != nil {
			continue
		}
		out = append(out, nm)
	}

	sortMeetings(out)
	return out, nil
}

func findAgendaPacketFile(files []civicClerkFile) (int, bool) {
	for _, f := range files {
		if f.Type == "Agenda Packet" {
			return f.FileID, true
		}
	}
	return 0, false
}

func (a *CivicClerkAdapter) packetURL(fileID int) string {
	return fmt.Sprintf("%s/v1/Meetings/GetMeetingFileStream(fileId=%d,plainText=false)", a.base, fileID)
}

// FetchAgenda implements Adapter. CivicClerk never exposes an item-level
// HTML agenda in this spec's scope, so every meeting stays monolithic.
func (a *CivicClerkAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	return nil, nil
}

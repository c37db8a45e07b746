package vendoradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/engagic/pipeline/pkg/attachutil"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// LegistarAdapter implements the Legistar rules in spec.md §4.1: a
// per-client OData API, with an optional token passed as a query
// parameter, item-level eventitems, and Ver{n} attachment dedup (§4.7).
type LegistarAdapter struct {
	slug    string
	client  string
	token   string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewLegistarAdapter constructs a Legistar adapter for the given client
// name (the {client} path segment), with an optional API token.
func NewLegistarAdapter(client, token string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*LegistarAdapter, error) {
	if err := requireSlug(client); err != nil {
		return nil, err
	}
	return &LegistarAdapter{
		slug:    client,
		client:  client,
		token:   token,
		base:    legistarBase,
		fetcher: fetcher,
		limiter: limiter,
		now:     time.Now,
	}, nil
}

// Vendor implements Adapter.
func (a *LegistarAdapter) Vendor() models.Vendor { return models.VendorLegistar }

const legistarBase = "https://webapi.legistar.com"

func (a *LegistarAdapter) withToken(q url.Values) url.Values {
	if a.token != "" {
		q.Set("token", a.token)
	}
	return q
}

type legistarEvent struct {
	EventID          int    `json:"EventId"`
	EventBodyName    string `json:"EventBodyName"`
	EventDate        string `json:"EventDate"`
	EventTime        string `json:"EventTime"`
	EventAgendaFile  string `json:"EventAgendaFile"`
}

// UpcomingMeetings implements Adapter (spec.md §4.1 Legistar rules).
func (a *LegistarAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorLegistar))

	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("EventDate ge %s", a.now().UTC().Format("2006-01-02")))
	listURL := fmt.Sprintf("%s/v1/%s/events?%s", a.base, a.client, a.withToken(q).Encode())

	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorLegistar, a.slug, "UpcomingMeetings", err)
	}

	var events []legistarEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, wrapErr(models.VendorLegistar, a.slug, "UpcomingMeetings", fmt.Errorf("decoding response: %w", err))
	}

	out := make([]models.NormalizedMeeting, 0, len(events))
	for _, ev := range events {
		if ev.EventAgendaFile == "" {
			continue
		}
		start := parseLegistarDateTime(ev.EventDate, ev.EventTime)
		nm := models.NormalizedMeeting{
			VendorMeetingID: strconv.Itoa(ev.EventID),
			Title:           ev.EventBodyName,
			Start:           start,
			PacketURL:       ev.EventAgendaFile,
		}
		if err := nm.Validate(); err != nil {
			continue
		}
		out = append(out, nm)
	}

	sortMeetings(out)
	return out, nil
}

func parseLegistarDateTime(date, clock string) time.Time {
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return time.Time{}
	}
	if clock == "" {
		return t
	}
	parsedClock, err := time.Parse("3:04 PM", clock)
	if err != nil {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), parsedClock.Hour(), parsedClock.Minute(), 0, 0, t.Location())
}

type legistarEventItem struct {
	EventItemID                int    `json:"EventItemId"`
	EventItemAgendaSequence    int    `json:"EventItemAgendaSequence"`
	EventItemTitle             string `json:"EventItemTitle"`
	EventItemMatterFile        string `json:"EventItemMatterFile"`
	EventItemMatterAttachments []struct {
		MatterAttachmentName      string `json:"MatterAttachmentName"`
		MatterAttachmentHyperlink string `json:"MatterAttachmentHyperlink"`
	} `json:"EventItemMatterAttachments"`
}

// FetchAgenda implements Adapter's item-based mode via
// /v1/{client}/events/{id}/eventitems.
func (a *LegistarAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	a.limiter.Wait(ctx, string(models.VendorLegistar))

	q := a.withToken(url.Values{})
	itemsURL := fmt.Sprintf("%s/v1/%s/events/%s/eventitems?%s", a.base, a.client, meeting.VendorMeetingID, q.Encode())

	body, err := a.fetcher.GetBytes(ctx, itemsURL)
	if err != nil {
		return nil, wrapErr(models.VendorLegistar, a.slug, "FetchAgenda", err)
	}

	var rawItems []legistarEventItem
	if err := json.Unmarshal(body, &rawItems); err != nil {
		return nil, wrapErr(models.VendorLegistar, a.slug, "FetchAgenda", fmt.Errorf("decoding response: %w", err))
	}
	if len(rawItems) == 0 {
		return nil, nil
	}

	items := make([]models.Item, 0, len(rawItems))
	attachmentsByItem := make(map[string][]models.Attachment)

	for _, ri := range rawItems {
		itemID := strconv.Itoa(ri.EventItemID)
		items = append(items, models.Item{
			ID:           itemID,
			MeetingID:    meeting.VendorMeetingID,
			Sequence:     ri.EventItemAgendaSequence,
			Title:        ri.EventItemTitle,
			MatterNumber: ri.EventItemMatterFile,
		})

		raw := make([]models.Attachment, 0, len(ri.EventItemMatterAttachments))
		for _, ma := range ri.EventItemMatterAttachments {
			rawAtt := models.RawAttachment{
				Name: ma.MatterAttachmentName,
				URL:  ma.MatterAttachmentHyperlink,
				Fields: map[string]string{
					"MatterAttachmentName":      ma.MatterAttachmentName,
					"MatterAttachmentHyperlink": ma.MatterAttachmentHyperlink,
				},
			}
			raw = append(raw, attachutil.NormalizeAttachment(models.VendorLegistar, itemID, rawAtt))
		}
		attachmentsByItem[itemID] = attachutil.FilterVersions(raw, nil)
	}

	return &models.AgendaDetail{
		Items:       items,
		Attachments: attachmentsByItem,
	}, nil
}

package vendoradapter

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// NovusAgendaAdapter scrapes a per-city NovusAgenda AgendaPublic listing
// with heuristics analogous to Granicus (spec.md §4.1).
type NovusAgendaAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
}

// NewNovusAgendaAdapter constructs a NovusAgenda adapter for citySlug.
func NewNovusAgendaAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*NovusAgendaAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &NovusAgendaAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://%s.novusagenda.com/agendapublic", citySlug),
		fetcher: fetcher,
		limiter: limiter,
	}, nil
}

// Vendor implements Adapter.
func (a *NovusAgendaAdapter) Vendor() models.Vendor { return models.VendorNovusAgenda }

// UpcomingMeetings implements Adapter by scraping MeetingView.aspx.
func (a *NovusAgendaAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorNovusAgenda))

	q := url.Values{}
	q.Set("MeetingsOnlyView", "true")
	listURL := fmt.Sprintf("%s/MeetingView.aspx?%s", a.base, q.Encode())

	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorNovusAgenda, a.slug, "UpcomingMeetings", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorNovusAgenda, a.slug, "UpcomingMeetings", fmt.Errorf("parsing HTML: %w", err))
	}

	var out []models.NormalizedMeeting
	doc.Find("table.meetingsTable tr, div.meeting-row").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a[href*='AgendaPublic']").First()
		href, exists := link.Attr("href")
		if !exists || href == "" {
			return
		}

		title := strings.TrimSpace(s.Find("td").First().Text())
		dateText := strings.TrimSpace(s.Find("td").Eq(1).Text())

		nm := models.NormalizedMeeting{
			VendorMeetingID: strconv.Itoa(i + 1),
			Title:           title,
			Start:           parseFlexibleDate(dateText),
			PacketURL:       resolveURL(a.base, href),
		}
		if err := nm.Validate(); err != nil {
			return
		}
		out = append(out, nm)
	})

	sortMeetings(out)
	return out, nil
}

// FetchAgenda implements Adapter. NovusAgenda listings in this spec's scope
// are always monolithic packets.
func (a *NovusAgendaAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	return nil, nil
}

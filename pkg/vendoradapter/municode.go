package vendoradapter

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// MunicodeAdapter scrapes a per-city Municode Meetings listing with
// heuristics analogous to Granicus (spec.md §4.1).
type MunicodeAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
}

// NewMunicodeAdapter constructs a Municode adapter for citySlug.
func NewMunicodeAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*MunicodeAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &MunicodeAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://meetings.municode.com/%s", citySlug),
		fetcher: fetcher,
		limiter: limiter,
	}, nil
}

// Vendor implements Adapter.
func (a *MunicodeAdapter) Vendor() models.Vendor { return models.VendorMunicode }

// UpcomingMeetings implements Adapter by scraping the Meetings landing page.
func (a *MunicodeAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorMunicode))

	body, err := a.fetcher.GetBytes(ctx, a.base)
	if err != nil {
		return nil, wrapErr(models.VendorMunicode, a.slug, "UpcomingMeetings", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorMunicode, a.slug, "UpcomingMeetings", fmt.Errorf("parsing HTML: %w", err))
	}

	var out []models.NormalizedMeeting
	doc.Find("div.meeting-item, li.meeting-list-item").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a[href$='.pdf'], a[href*='/packet']").First()
		href, exists := link.Attr("href")
		if !exists || href == "" {
			return
		}

		title := strings.TrimSpace(s.Find(".meeting-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		dateText := strings.TrimSpace(s.Find(".meeting-date").First().Text())

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

// FetchAgenda implements Adapter. Municode listings in this spec's scope
// are always monolithic packets.
func (a *MunicodeAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	return nil, nil
}

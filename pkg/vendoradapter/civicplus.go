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

// CivicPlusAdapter scrapes a per-city CivicPlus agenda center listing with
// heuristics analogous to Granicus (spec.md §4.1). CivicPlus is the
// "aggressive blocker" vendor (8s spacing, wider jitter window in
// pkg/ratelimit) so this adapter is deliberately conservative about
// request volume: one listing fetch per poll, and FetchAgenda makes no
// request at all.
type CivicPlusAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
}

// NewCivicPlusAdapter constructs a CivicPlus adapter for citySlug.
func NewCivicPlusAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*CivicPlusAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &CivicPlusAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://%s.civicplus.com", citySlug),
		fetcher: fetcher,
		limiter: limiter,
	}, nil
}

// Vendor implements Adapter.
func (a *CivicPlusAdapter) Vendor() models.Vendor { return models.VendorCivicPlus }

// UpcomingMeetings implements Adapter by scraping the AgendaCenter listing.
func (a *CivicPlusAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorCivicPlus))

	listURL := fmt.Sprintf("%s/AgendaCenter", a.base)
	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorCivicPlus, a.slug, "UpcomingMeetings", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorCivicPlus, a.slug, "UpcomingMeetings", fmt.Errorf("parsing HTML: %w", err))
	}

	var out []models.NormalizedMeeting
	doc.Find("div.agendaCenterRow, li.catAgendaRow").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a[href*='ViewFile']").First()
		href, exists := link.Attr("href")
		if !exists || href == "" {
			return
		}

		title := strings.TrimSpace(s.Find(".catAgendaTitle, .agendaTitle").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		dateText := strings.TrimSpace(s.Find(".catAgendaDate, .agendaDate").First().Text())

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

// FetchAgenda implements Adapter. CivicPlus listings in this spec's scope
// are always monolithic packets.
func (a *CivicPlusAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	return nil, nil
}

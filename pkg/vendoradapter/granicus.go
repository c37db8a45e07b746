package vendoradapter

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/engagic/pipeline/pkg/attachutil"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// GranicusAdapter scrapes a per-city Granicus listing page (spec.md §4.1):
// agenda links point to AgendaViewer.php (item mode) or direct PDFs
// (monolithic); attachments route through MetaViewer.php. Packet URLs may
// resolve to s3.amazonaws.com/granicus_production_attachments/{slug}/…,
// which pkg/store's health check uses to detect cross-contamination.
type GranicusAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
}

// NewGranicusAdapter constructs a Granicus adapter for citySlug, e.g.
// "santamaria".
func NewGranicusAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*GranicusAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &GranicusAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://%s.granicus.com", citySlug),
		fetcher: fetcher,
		limiter: limiter,
	}, nil
}

// Vendor implements Adapter.
func (a *GranicusAdapter) Vendor() models.Vendor { return models.VendorGranicus }

var (
	granicusAgendaViewerPattern = regexp.MustCompile(`(?i)AgendaViewer\.php\?[^"'\s]+`)
	granicusMetaViewerPattern   = regexp.MustCompile(`(?i)MetaViewer\.php\?[^"'\s]+`)
	granicusClipIDPattern       = regexp.MustCompile(`(?i)clip_id=(\d+)`)
)

// UpcomingMeetings implements Adapter by scraping the ViewPublisher listing
// page's <table> rows.
func (a *GranicusAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorGranicus))

	listURL := fmt.Sprintf("%s/ViewPublisher.php?view_id=1", a.base)
	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorGranicus, a.slug, "UpcomingMeetings", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorGranicus, a.slug, "UpcomingMeetings", fmt.Errorf("parsing HTML: %w", err))
	}

	var out []models.NormalizedMeeting
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href]").First()
		href, exists := link.Attr("href")
		if !exists || href == "" {
			return
		}

		clipID := ""
		if m := granicusClipIDPattern.FindStringSubmatch(href); m != nil {
			clipID = m[1]
		}
		if clipID == "" {
			return
		}

		title := strings.TrimSpace(row.Find("td").First().Text())
		dateText := strings.TrimSpace(row.Find("td").Eq(1).Text())
		start := parseFlexibleDate(dateText)

		nm := models.NormalizedMeeting{
			VendorMeetingID: clipID,
			Title:           title,
			Start:           start,
		}

		resolved := resolveURL(a.base, href)
		if granicusAgendaViewerPattern.MatchString(resolved) {
			nm.AgendaURL = resolved
		} else {
			nm.PacketURL = resolved
		}

		if err := nm.Validate(); err != nil {
			return
		}
		out = append(out, nm)
	})

	sortMeetings(out)
	return out, nil
}

// FetchAgenda implements Adapter's item-based mode when AgendaURL points at
// AgendaViewer.php: parse <table> rows or agenda-item divs, routing
// attachment links through MetaViewer.php.
func (a *GranicusAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	if meeting.AgendaURL == "" {
		return nil, nil // monolithic packet, nothing to scrape
	}

	a.limiter.Wait(ctx, string(models.VendorGranicus))

	body, err := a.fetcher.GetBytes(ctx, meeting.AgendaURL)
	if err != nil {
		return nil, wrapErr(models.VendorGranicus, a.slug, "FetchAgenda", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorGranicus, a.slug, "FetchAgenda", fmt.Errorf("parsing HTML: %w", err))
	}

	rows := doc.Find("div.agenda-item, table.agenda tr")
	if rows.Length() == 0 {
		return nil, nil
	}

	items := make([]models.Item, 0, rows.Length())
	attachmentsByItem := make(map[string][]models.Attachment)

	rows.Each(func(sequence int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return
		}
		itemID := strconv.Itoa(sequence + 1)

		items = append(items, models.Item{
			ID:        itemID,
			MeetingID: meeting.VendorMeetingID,
			Sequence:  sequence + 1,
			Title:     title,
		})

		var raw []models.Attachment
		s.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			if !granicusMetaViewerPattern.MatchString(href) {
				return
			}
			rawAtt := models.RawAttachment{Name: strings.TrimSpace(link.Text()), URL: resolveURL(a.base, href)}
			raw = append(raw, attachutil.NormalizeAttachment(models.VendorGranicus, itemID, rawAtt))
		})
		attachmentsByItem[itemID] = raw
	})

	return &models.AgendaDetail{Items: items, Attachments: attachmentsByItem}, nil
}

// resolveURL joins a possibly-relative href against base.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// parseFlexibleDate tries the date layouts Granicus-family vendors commonly
// render listing dates in; unparseable text yields a zero time rather than
// an error, since a bad date shouldn't drop an otherwise-valid meeting.
func parseFlexibleDate(text string) time.Time {
	layouts := []string{
		"January 2, 2006",
		"01/02/2006",
		time.RFC3339,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	return time.Time{}
}

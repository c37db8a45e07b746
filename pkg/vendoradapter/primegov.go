package vendoradapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/engagic/pipeline/pkg/attachutil"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/ratelimit"
)

// PrimeGovAdapter implements the PrimeGov rules in spec.md §4.1, grounded on
// original_source/app/adapters.py's PrimeGovAdapter and
// infocore/adapters/html_agenda_parser.py's item-mode HTML parsing.
type PrimeGovAdapter struct {
	slug    string
	base    string
	fetcher *httpfetch.Fetcher
	limiter *ratelimit.Limiter
}

// NewPrimeGovAdapter constructs a PrimeGov adapter for citySlug, e.g.
// "cityofpaloalto". Rejects a blank slug per spec.md §4.1(i).
func NewPrimeGovAdapter(citySlug string, fetcher *httpfetch.Fetcher, limiter *ratelimit.Limiter) (*PrimeGovAdapter, error) {
	if err := requireSlug(citySlug); err != nil {
		return nil, err
	}
	return &PrimeGovAdapter{
		slug:    citySlug,
		base:    fmt.Sprintf("https://%s.primegov.com", citySlug),
		fetcher: fetcher,
		limiter: limiter,
	}, nil
}

// Vendor implements Adapter.
func (a *PrimeGovAdapter) Vendor() models.Vendor { return models.VendorPrimeGov }

type primeGovDocument struct {
	TemplateName      string `json:"templateName"`
	TemplateID        int    `json:"templateId"`
	CompileOutputType int    `json:"compileOutputType"`
}

type primeGovMeeting struct {
	ID            int                `json:"id"`
	Title         string             `json:"title"`
	DateTime      string             `json:"dateTime"`
	DocumentList  []primeGovDocument `json:"documentList"`
	HasItemAgenda bool               `json:"-"` // not read from this payload; nothing in this package sets it
}

func (a *PrimeGovAdapter) packetURL(doc primeGovDocument) string {
	q := url.Values{}
	q.Set("meetingTemplateId", strconv.Itoa(doc.TemplateID))
	q.Set("compileOutputType", strconv.Itoa(doc.CompileOutputType))
	return fmt.Sprintf("%s/Public/CompiledDocument?%s", a.base, q.Encode())
}

// UpcomingMeetings implements Adapter (spec.md §4.1 PrimeGov rules).
func (a *PrimeGovAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.limiter.Wait(ctx, string(models.VendorPrimeGov))

	listURL := fmt.Sprintf("%s/api/v2/PublicPortal/ListUpcomingMeetings", a.base)
	body, err := a.fetcher.GetBytes(ctx, listURL)
	if err != nil {
		return nil, wrapErr(models.VendorPrimeGov, a.slug, "UpcomingMeetings", err)
	}

	var meetings []primeGovMeeting
	if err := json.Unmarshal(body, &meetings); err != nil {
		return nil, wrapErr(models.VendorPrimeGov, a.slug, "UpcomingMeetings", fmt.Errorf("decoding response: %w", err))
	}

	out := make([]models.NormalizedMeeting, 0, len(meetings))
	for _, mtg := range meetings {
		pkt, ok := findPacketDocument(mtg.DocumentList)
		if !ok {
			continue
		}

		start, _ := time.Parse(time.RFC3339, mtg.DateTime)
		nm := models.NormalizedMeeting{
			VendorMeetingID: strconv.Itoa(mtg.ID),
			Title:           mtg.Title,
			Start:           start,
			PacketURL:       a.packetURL(pkt),
		}
		if err := nm.Validate(); err != nil {
			continue // defensive: malformed vendor payload, skip rather than crash the whole poll
		}
		out = append(out, nm)
	}

	sortMeetings(out)
	return out, nil
}

func findPacketDocument(docs []primeGovDocument) (primeGovDocument, bool) {
	for _, d := range docs {
		if strings.Contains(d.TemplateName, "Packet") {
			return d, true
		}
	}
	return primeGovDocument{}, false
}

func sortMeetings(meetings []models.NormalizedMeeting) {
	sort.Slice(meetings, func(i, j int) bool {
		if !meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].Start.Before(meetings[j].Start)
		}
		return meetings[i].VendorMeetingID < meetings[j].VendorMeetingID
	})
}

// FetchAgenda implements Adapter's item-based mode: when PrimeGov exposes
// /Portal/Meeting/{id} with <div class="agenda-item"> blocks, parse each
// item and its attachments, and harvest participation info from the page
// text (spec.md §4.1, original_source/infocore/adapters/html_agenda_parser.py).
func (a *PrimeGovAdapter) FetchAgenda(ctx context.Context, city models.City, meeting models.NormalizedMeeting) (*models.AgendaDetail, error) {
	a.limiter.Wait(ctx, string(models.VendorPrimeGov))

	pageURL := fmt.Sprintf("%s/Portal/Meeting/%s", a.base, meeting.VendorMeetingID)
	body, err := a.fetcher.GetBytes(ctx, pageURL)
	if err != nil {
		return nil, wrapErr(models.VendorPrimeGov, a.slug, "FetchAgenda", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(models.VendorPrimeGov, a.slug, "FetchAgenda", fmt.Errorf("parsing HTML: %w", err))
	}

	agendaItems := doc.Find("div.agenda-item")
	if agendaItems.Length() == 0 {
		// No item-level structure: this meeting stays monolithic-packet.
		return nil, nil
	}

	items := make([]models.Item, 0, agendaItems.Length())
	attachmentsByItem := make(map[string][]models.Attachment)

	agendaItems.Each(func(sequence int, s *goquery.Selection) {
		fullID, exists := s.Attr("id")
		if !exists || fullID == "" {
			return
		}
		itemID := strings.TrimPrefix(fullID, "AgendaItem_")
		title := strings.TrimSpace(s.Text())

		items = append(items, models.Item{
			ID:        itemID,
			MeetingID: meeting.VendorMeetingID,
			Sequence:  sequence + 1,
			Title:     title,
		})

		contentsID := fmt.Sprintf("agenda_item_area_%s", itemID)
		contentsDiv := doc.Find(fmt.Sprintf("#%s", contentsID))
		attachmentsByItem[itemID] = extractPrimeGovAttachments(contentsDiv, itemID)
	})

	participation := extractParticipationInfo(doc.Text())

	return &models.AgendaDetail{
		Items:         items,
		Attachments:   attachmentsByItem,
		Participation: &participation,
	}, nil
}

var historyIDPattern = regexp.MustCompile(`(?i)historyId=([a-f0-9\-]+)`)

func extractPrimeGovAttachments(contentsDiv *goquery.Selection, itemID string) []models.Attachment {
	var out []models.Attachment
	contentsDiv.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(strings.ToLower(href), "historyattachment") {
			return
		}
		m := historyIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		historyID := m[1]

		name := strings.TrimSpace(link.Text())
		if name == "" {
			name = fmt.Sprintf("Attachment %d", len(out)+1)
		}

		raw := models.RawAttachment{Name: name, URL: href, HistoryID: historyID}
		out = append(out, attachutil.NormalizeAttachment(models.VendorPrimeGov, itemID, raw))
	})
	return out
}

// Package processor implements the extract→summarize pipeline stage
// described in spec.md §4.9: given a claimed queue entry, resolve its
// source documents, extract text (chunking oversize PDFs per §4.4),
// summarize through the LLM under ProviderLimiter discipline, and record
// the result (or a terminal failure) back to the Store.
//
// Grounded on the teacher's pkg/queue.SessionExecutor boundary (worker owns
// claim/heartbeat/terminal-status, the executor owns the actual unit of
// work) — Processor plays the executor's role here.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	cache "github.com/patrickmn/go-cache"

	"github.com/engagic/pipeline/pkg/extract"
	"github.com/engagic/pipeline/pkg/httpfetch"
	"github.com/engagic/pipeline/pkg/llm"
	"github.com/engagic/pipeline/pkg/metrics"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/pdfchunk"
	"github.com/engagic/pipeline/pkg/providerlimit"
	"github.com/engagic/pipeline/pkg/queue"
	"github.com/engagic/pipeline/pkg/store"
	"github.com/engagic/pipeline/pkg/vendoradapter"
)

// matterCacheTTL bounds how long a (banana, matter_number) → matter_id
// lookup is cached during matter-appearance bookkeeping, so a recurring
// matter referenced by many items across one dispatch batch costs one
// Store round trip instead of one per item.
const matterCacheTTL = 10 * time.Minute

// AdapterFor resolves the Adapter for a city, the same capability
// vendoradapter.Registry.For exposes — accepted as an interface so the
// Processor doesn't need to import the concrete Registry type.
type AdapterFor interface {
	For(city models.City, legistarToken string) (vendoradapter.Adapter, error)
}

// Processor is the spec.md §4.9 pipeline stage.
type Processor struct {
	store     *store.Store
	queue     *queue.Queue
	fetcher   *httpfetch.Fetcher
	chunker   *pdfchunk.Chunker
	extractor extract.Extractor
	fallback  extract.Extractor // optional; nil under the free-tier policy (§4.9)
	llmClient llm.Client
	limiter   *providerlimit.Limiter
	model     string
	adapters  AdapterFor

	matterCache *cache.Cache
}

// New constructs a Processor. fallback may be nil (spec.md §4.9 free-tier
// policy: "no fallback beyond the fast text path").
func New(st *store.Store, q *queue.Queue, fetcher *httpfetch.Fetcher, chunker *pdfchunk.Chunker, extractor, fallback extract.Extractor, llmClient llm.Client, limiter *providerlimit.Limiter, model string, adapters AdapterFor) *Processor {
	return &Processor{
		store:       st,
		queue:       q,
		fetcher:     fetcher,
		chunker:     chunker,
		extractor:   extractor,
		fallback:    fallback,
		llmClient:   llmClient,
		limiter:     limiter,
		model:       model,
		adapters:    adapters,
		matterCache: cache.New(matterCacheTTL, matterCacheTTL*2),
	}
}

// Process handles one claimed queue entry to completion, calling Complete
// or Fail on the Queue itself — the caller (the worker pool) only needs to
// invoke Process and move on.
func (p *Processor) Process(ctx context.Context, entry models.QueueEntry) error {
	payload, err := queue.DecodePayload(entry)
	if err != nil {
		return p.queue.Fail(ctx, entry.ID, err, false)
	}

	switch pl := payload.(type) {
	case models.MeetingPayload:
		return p.processMeetingJob(ctx, entry, pl)
	case models.MatterPayload:
		return p.processMatterJob(ctx, entry, pl)
	default:
		return p.queue.Fail(ctx, entry.ID, fmt.Errorf("unhandled payload type %T", payload), false)
	}
}

func (p *Processor) processMeetingJob(ctx context.Context, entry models.QueueEntry, payload models.MeetingPayload) error {
	log := slog.With("meeting_id", payload.MeetingID, "job_id", entry.ID)

	meeting, err := p.store.GetMeeting(ctx, payload.MeetingID)
	if err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}

	if err := p.store.SetProcessingStatus(ctx, meeting.ID, models.ProcessingRunning); err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}

	summary, topics, err := p.summarizeMeeting(ctx, meeting, payload.SourceURL)
	if err != nil {
		log.Error("meeting processing failed", "error", err)
		_ = p.store.SetProcessingStatus(ctx, meeting.ID, models.ProcessingFailed)
		retryable := isRetryable(err)
		if !retryable {
			metrics.JobsFailed.WithLabelValues(string(models.JobTypeMeeting)).Inc()
		}
		return p.queue.Fail(ctx, entry.ID, err, retryable)
	}

	if err := p.store.RecordSummary(ctx, meeting.ID, summary, strings.Join(topics, ",")); err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}

	log.Info("meeting processed")
	metrics.JobsProcessed.WithLabelValues(string(models.JobTypeMeeting)).Inc()
	return p.queue.Complete(ctx, entry.ID)
}

// processMatterJob handles a MatterPayload job: summarize a recurring
// matter's appearance across one meeting by rolling up the titles of the
// items it appeared under (spec.md §4.6 MatterPayload, §3 CityMatter).
func (p *Processor) processMatterJob(ctx context.Context, entry models.QueueEntry, payload models.MatterPayload) error {
	log := slog.With("matter_id", payload.MatterID, "meeting_id", payload.MeetingID, "job_id", entry.ID)

	matter, err := p.store.GetMatter(ctx, payload.MatterID)
	if err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}

	titles, err := p.store.ItemTitlesByIDs(ctx, payload.ItemIDs)
	if err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}
	if len(titles) == 0 {
		metrics.JobsFailed.WithLabelValues(string(models.JobTypeMatter)).Inc()
		return p.queue.Fail(ctx, entry.ID, &ExtractionError{MeetingID: payload.MeetingID, Err: extract.ErrEmptyText{}}, false)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matter %s has appeared under the following agenda items:\n\n", matter.Title)
	for _, id := range payload.ItemIDs {
		if title, ok := titles[id]; ok {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	b.WriteString("\nSummarize this matter's history and current status in a few sentences.")

	summary, err := p.summarizeText(ctx, "", b.String())
	if err != nil {
		log.Error("matter summarization failed", "error", err)
		retryable := isRetryable(err)
		if !retryable {
			metrics.JobsFailed.WithLabelValues(string(models.JobTypeMatter)).Inc()
		}
		return p.queue.Fail(ctx, entry.ID, &ProcessingError{MeetingID: payload.MeetingID, Err: err}, retryable)
	}

	if err := p.store.RecordMatterSummary(ctx, payload.MatterID, summary); err != nil {
		return p.queue.Fail(ctx, entry.ID, err, true)
	}

	log.Info("matter processed")
	metrics.JobsProcessed.WithLabelValues(string(models.JobTypeMatter)).Inc()
	return p.queue.Complete(ctx, entry.ID)
}

// retryableError is implemented by errors that carry spec.md §7's
// propagation-policy flag (HTTPTransientError, ErrRateLimited); anything
// else (ExtractionError, ProcessingError, ValidationError) is terminal.
type retryableError interface {
	Retryable() bool
}

func isRetryable(err error) bool {
	var re retryableError
	if as(err, &re) {
		return re.Retryable()
	}
	return false
}

// as is a tiny errors.As wrapper kept local to avoid importing errors just
// for this one call site in two functions.
func as(err error, target *retryableError) bool {
	for err != nil {
		if re, ok := err.(retryableError); ok {
			*target = re
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// summarizeMeeting dispatches on sourceURL per spec.md §4.9's three cases
// and returns the final stitched summary plus any topic tags.
func (p *Processor) summarizeMeeting(ctx context.Context, meeting models.Meeting, sourceURL string) (string, []string, error) {
	switch {
	case strings.HasPrefix(sourceURL, models.ItemsSourcePrefix):
		return p.summarizeFromStoredItems(ctx, meeting)
	case meeting.PacketURL != "":
		return p.summarizePacket(ctx, meeting)
	default:
		return p.summarizeAgenda(ctx, meeting)
	}
}

// summarizePacket handles case 2 of spec.md §4.9: fetch the monolithic PDF,
// chunk it if it exceeds the size/page caps, extract and summarize each
// chunk, and stitch.
func (p *Processor) summarizePacket(ctx context.Context, meeting models.Meeting) (string, []string, error) {
	pdfBytes, err := pdfchunk.Download(ctx, p.fetcher, meeting.PacketURL, 0)
	if err != nil {
		return "", nil, &httpfetch.HTTPTransientError{Inner: err}
	}
	summary, err := p.extractSummarizeStitch(ctx, meeting.ID, pdfBytes)
	return summary, nil, err
}

// summarizeAgenda handles case 3: fetch the HTML agenda, delegate to the
// vendor adapter's FetchAgenda for item/attachment detail, persist it, and
// continue exactly as the items:// path does (spec.md §9's single-path
// resolution of the items:// re-fetch open question).
func (p *Processor) summarizeAgenda(ctx context.Context, meeting models.Meeting) (string, []string, error) {
	city, err := p.cityFor(ctx, meeting.Banana)
	if err != nil {
		return "", nil, err
	}

	adapter, err := p.adapters.For(city, "")
	if err != nil {
		return "", nil, err
	}

	normalized := models.NormalizedMeeting{
		VendorMeetingID: meeting.VendorMeetingID,
		Title:           meeting.Title,
		Start:           meeting.ScheduledStart,
		AgendaURL:       meeting.AgendaURL,
	}

	detail, err := adapter.FetchAgenda(ctx, city, normalized)
	if err != nil {
		return "", nil, err
	}
	if detail == nil {
		// Adapter found no item-level structure on this agenda page; treat
		// its plain text as the sole document. This is not a PDF, so it
		// skips PDFChunker/ExtractText entirely and goes straight to the
		// LLM — an edge case spec.md §4.1 anticipates ("optionally parses
		// item-level agenda HTML") but does not expect in steady state.
		htmlText, err := p.fetchPlainText(ctx, meeting.AgendaURL)
		if err != nil {
			return "", nil, &httpfetch.HTTPTransientError{Inner: err}
		}
		summary, err := p.summarizeText(ctx, "", htmlText)
		if err != nil {
			return "", nil, &ProcessingError{MeetingID: meeting.ID, Err: err}
		}
		return summary, nil, nil
	}

	if err := p.store.UpsertItemsAndAttachments(ctx, meeting.ID, detail.Items, detail.Attachments); err != nil {
		return "", nil, err
	}
	p.recordMatterAppearances(ctx, meeting, detail.Items)

	return p.summarizeFromStoredItems(ctx, meeting)
}

// summarizeFromStoredItems handles case 1: per-attachment processing and
// aggregation (spec.md §4.9).
func (p *Processor) summarizeFromStoredItems(ctx context.Context, meeting models.Meeting) (string, []string, error) {
	items, attachmentsByItem, err := p.store.ItemsForMeeting(ctx, meeting.ID)
	if err != nil {
		return "", nil, err
	}

	var sections []string
	for _, item := range items {
		for _, att := range attachmentsByItem[item.ID] {
			pdfBytes, err := pdfchunk.Download(ctx, p.fetcher, att.URL, 0)
			if err != nil {
				slog.Warn("attachment download failed, skipping", "meeting_id", meeting.ID, "attachment", att.DisplayName, "error", err)
				continue
			}
			summary, err := p.extractSummarizeStitch(ctx, meeting.ID, pdfBytes)
			if err != nil {
				slog.Warn("attachment extraction/summarization failed, skipping", "meeting_id", meeting.ID, "attachment", att.DisplayName, "error", err)
				continue
			}
			sections = append(sections, fmt.Sprintf("**%s — %s**\n%s", item.Title, att.DisplayName, summary))
		}
	}

	if len(sections) == 0 {
		return "", nil, &ExtractionError{MeetingID: meeting.ID, Err: extract.ErrEmptyText{}}
	}

	return strings.Join(sections, "\n\n"), nil, nil
}

// extractSummarizeStitch runs the chunk→extract→summarize→stitch pipeline
// against one document's raw bytes (spec.md §4.4, §4.9).
func (p *Processor) extractSummarizeStitch(ctx context.Context, meetingID string, docBytes []byte) (string, error) {
	chunks, err := p.splitIfNeeded(docBytes)
	if err != nil {
		return "", &ExtractionError{MeetingID: meetingID, Err: err}
	}

	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text, err := p.extractChunkText(ctx, chunk.Content)
		if err != nil {
			return "", &ExtractionError{MeetingID: meetingID, Err: err}
		}

		summary, err := p.summarizeText(ctx, pdfchunk.PromptPrefix(chunk), text)
		if err != nil {
			return "", &ProcessingError{MeetingID: meetingID, Err: err}
		}
		summaries = append(summaries, summary)
	}

	return pdfchunk.StitchSummaries(chunks, summaries), nil
}

// splitIfNeeded runs PDFChunker.Split, which already produces a single
// chunk for a document within both caps (spec.md §4.4); callers never need
// to special-case the small-document path themselves.
func (p *Processor) splitIfNeeded(docBytes []byte) ([]pdfchunk.Chunk, error) {
	return p.chunker.Split(docBytes)
}

// fetchPlainText fetches url and strips it down to its rendered text, for
// the rare agenda page that carries no item-level structure at all.
func (p *Processor) fetchPlainText(ctx context.Context, url string) (string, error) {
	body, err := p.fetcher.GetBytes(ctx, url)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	return strings.TrimSpace(doc.Text()), nil
}

// extractChunkText runs the primary extractor, falling back once if it
// yields no usable text (spec.md §4.9, §7).
func (p *Processor) extractChunkText(ctx context.Context, pdfBytes []byte) (string, error) {
	result, err := p.extractor.ExtractText(ctx, pdfBytes)
	if err == nil {
		return result.Text, nil
	}
	if p.fallback == nil {
		return "", err
	}

	result, fallbackErr := p.fallback.ExtractText(ctx, pdfBytes)
	if fallbackErr != nil {
		return "", fallbackErr
	}
	return result.Text, nil
}

// summarizeText invokes the LLM under ProviderLimiter discipline (spec.md
// §4.3, §4.9): wait/record via providerlimit.Call, parse rate-limit
// headers from the response, retry once on a rate-limit-shaped failure.
func (p *Processor) summarizeText(ctx context.Context, promptPrefix, text string) (string, error) {
	prompt := text
	if promptPrefix != "" {
		prompt = promptPrefix + "\n\n" + text
	}

	var result llm.Result
	err := providerlimit.Call(ctx, p.limiter, p.model, func() error {
		r, headers, callErr := p.llmClient.Summarize(ctx, p.model, prompt)
		p.limiter.ParseHeaders(p.model, headers)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (p *Processor) cityFor(ctx context.Context, banana string) (models.City, error) {
	cities, err := p.store.ListCities(ctx, store.CityFilter{})
	if err != nil {
		return models.City{}, err
	}
	for _, c := range cities {
		if c.Banana == banana {
			return c, nil
		}
	}
	return models.City{}, fmt.Errorf("city %s not found", banana)
}

// recordMatterAppearances upserts a CityMatter and MatterAppearance row for
// every item carrying a matter/record number (spec.md §3), caching the
// (banana, matter_number) → matter_id lookup in the Processor's cache for
// matterCacheTTL to avoid redundant Store round trips for a recurring
// matter.
func (p *Processor) recordMatterAppearances(ctx context.Context, meeting models.Meeting, items []models.Item) {
	for _, item := range items {
		if item.MatterNumber == "" {
			continue
		}

		cacheKey := meeting.Banana + ":" + item.MatterNumber
		var matterID string
		if cached, ok := p.matterCache.Get(cacheKey); ok {
			matterID = cached.(string)
		} else {
			id, err := p.store.UpsertMatter(ctx, meeting.Banana, item.MatterNumber, item.Title)
			if err != nil {
				slog.Warn("matter upsert failed", "banana", meeting.Banana, "matter_number", item.MatterNumber, "error", err)
				continue
			}
			matterID = id
			p.matterCache.Set(cacheKey, matterID, matterCacheTTL)
		}

		itemRowID := fmt.Sprintf("item:%s:%s", meeting.ID, item.ID)
		if err := p.store.RecordMatterAppearance(ctx, matterID, meeting.ID, itemRowID); err != nil {
			slog.Warn("matter appearance record failed", "matter_id", matterID, "meeting_id", meeting.ID, "error", err)
		}
	}
}

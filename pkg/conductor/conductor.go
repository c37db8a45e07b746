// Package conductor implements the poll→enqueue→dispatch state machine
// described in spec.md §4.8: for each active city, list upcoming meetings,
// upsert them, enqueue new/changed ones, recover expired leases, and
// dispatch queued jobs to a bounded worker pool.
//
// Grounded on the teacher's top-level wiring in cmd/tarsy/main.go (the
// "owns startup wiring, delegates to packages" shape) generalized into its
// own package around spec.md's explicit state machine, and on the teacher's
// pkg/cleanup package shape for the separate queue-retention GC ticker.
package conductor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/engagic/pipeline/pkg/metrics"
	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/queue"
	"github.com/engagic/pipeline/pkg/store"
	"github.com/engagic/pipeline/pkg/vendoradapter"
)

// State is the conductor's current phase in the spec.md §4.8 diagram:
// IDLE → POLLING → ENQUEUEING → DISPATCHING → IDLE.
type State string

// Conductor states.
const (
	StateIdle        State = "idle"
	StatePolling     State = "polling"
	StateEnqueueing  State = "enqueueing"
	StateDispatching State = "dispatching"
)

// Executor is the capability a worker invokes for each claimed job — the
// Processor satisfies this (spec.md §4.9).
type Executor interface {
	Process(ctx context.Context, entry models.QueueEntry) error
}

// AdapterFor resolves the vendoradapter.Adapter for a city; satisfied by
// *vendoradapter.Registry.
type AdapterFor interface {
	For(city models.City, legistarToken string) (vendoradapter.Adapter, error)
}

// Config bounds the Conductor's cadence (spec.md §6).
type Config struct {
	PollInterval  time.Duration
	DispatchBatch int
	WorkerCount   int
	GCInterval    time.Duration
}

// LegistarTokens maps a city's banana to its Legistar API token, when
// configured (spec.md §4.1).
type LegistarTokens map[string]string

// Conductor drives the spec.md §4.8 poll/enqueue/dispatch cycle.
type Conductor struct {
	store    *store.Store
	queue    *queue.Queue
	adapters AdapterFor
	executor Executor
	tokens   LegistarTokens
	cfg      Config

	mu    sync.RWMutex
	state State

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Conductor. tokens may be nil.
func New(st *store.Store, q *queue.Queue, adapters AdapterFor, executor Executor, tokens LegistarTokens, cfg Config) *Conductor {
	if tokens == nil {
		tokens = make(LegistarTokens)
	}
	return &Conductor{
		store:    st,
		queue:    q,
		adapters: adapters,
		executor: executor,
		tokens:   tokens,
		cfg:      cfg,
		state:    StateIdle,
		stopCh:   make(chan struct{}),
	}
}

// State reports the Conductor's current phase, for health/introspection.
func (c *Conductor) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Conductor) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Start launches the poll loop, the bounded worker pool, and the GC ticker,
// all as background goroutines, and recovers any leases left over from a
// prior unclean shutdown (spec.md §4.6, §5: "called at startup and
// periodically").
func (c *Conductor) Start(ctx context.Context) {
	if n, err := c.queue.RecoverLeases(ctx); err != nil {
		slog.Error("initial lease recovery failed", "error", err)
	} else if n > 0 {
		slog.Warn("recovered expired leases at startup", "count", n)
	}

	c.wg.Add(1)
	go c.runPollLoop(ctx)

	for i := 0; i < c.cfg.WorkerCount; i++ {
		w := newWorker(i, c.queue, c.executor)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			w.run(ctx, c.stopCh)
		}()
	}

	c.wg.Add(1)
	go c.runGCLoop(ctx)
}

// Stop signals every background goroutine to exit and waits for them.
func (c *Conductor) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Conductor) runPollLoop(ctx context.Context) {
	defer c.wg.Done()

	// Run once immediately so a fresh process doesn't wait a full interval
	// before its first poll.
	c.poll(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// poll runs one full IDLE→POLLING→ENQUEUEING→IDLE cycle (spec.md §4.8,
// step 1–2). Dispatching happens continuously on the worker pool, not as
// part of this cycle, so a slow city never blocks job processing.
func (c *Conductor) poll(ctx context.Context) {
	c.setState(StatePolling)
	defer c.setState(StateIdle)

	cities, err := c.store.ListCities(ctx, store.CityFilter{Status: models.CityStatusActive})
	if err != nil {
		slog.Error("listing active cities failed", "error", err)
		return
	}

	for _, city := range cities {
		c.pollCity(ctx, city)
	}

	if n, err := c.queue.RecoverLeases(ctx); err != nil {
		slog.Error("lease recovery failed", "error", err)
	} else if n > 0 {
		slog.Warn("recovered expired leases", "count", n)
	}
}

func (c *Conductor) pollCity(ctx context.Context, city models.City) {
	log := slog.With("banana", city.Banana, "vendor", city.Vendor)

	adapter, err := c.adapters.For(city, c.tokens[city.Banana])
	if err != nil {
		log.Error("resolving adapter failed", "error", err)
		return
	}

	meetings, err := adapter.UpcomingMeetings(ctx, city)
	if err != nil {
		// AdapterError (spec.md §4.1(iii)): skip this city for this cycle
		// rather than crash the conductor.
		log.Warn("adapter UpcomingMeetings failed, skipping city this cycle", "error", err)
		return
	}

	c.setState(StateEnqueueing)
	changed, err := c.store.UpsertMeetings(ctx, city.Banana, meetings)
	if err != nil {
		log.Error("upserting meetings failed", "error", err)
		return
	}

	for _, meeting := range changed {
		if _, err := c.queue.Enqueue(ctx, models.JobTypeMeeting, models.MeetingPayload{
			MeetingID: meeting.ID,
			SourceURL: meeting.SourceURL(),
		}); err != nil {
			log.Error("enqueueing meeting job failed", "meeting_id", meeting.ID, "error", err)
			continue
		}
		metrics.MeetingsEnqueued.WithLabelValues(string(city.Vendor)).Inc()
	}

	if len(changed) > 0 {
		log.Info("poll cycle enqueued meetings", "new_or_changed", len(changed))
	}
}

func (c *Conductor) runGCLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.queue.GarbageCollect(ctx)
			if err != nil {
				slog.Error("queue garbage collection failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("garbage-collected terminal queue entries", "count", n)
			}
		}
	}
}

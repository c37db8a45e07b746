package conductor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/engagic/pipeline/pkg/queue"
	"github.com/engagic/pipeline/pkg/store"
	"github.com/engagic/pipeline/pkg/vendoradapter"
	"github.com/stretchr/testify/require"
)

func newTestStoreAndQueue(t *testing.T) (*store.Store, *queue.Queue) {
	t.Helper()
	s, err := store.Open(context.Background(), store.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := queue.DefaultConfig()
	cfg.LeaseDuration = 50 * time.Millisecond
	return s, queue.New(s.SQLX(), cfg)
}

// fakeAdapters returns a fixed adapter regardless of city, so pollCity
// exercises the conductor without hitting the network.
type fakeAdapters struct {
	mu       sync.Mutex
	meetings []models.NormalizedMeeting
	err      error
	calls    int
}

func (f *fakeAdapters) For(city models.City, legistarToken string) (vendoradapter.Adapter, error) {
	return &fakeAdapter{parent: f}, nil
}

type fakeAdapter struct{ parent *fakeAdapters }

func (a *fakeAdapter) Vendor() models.Vendor { return models.VendorPrimeGov }

func (a *fakeAdapter) UpcomingMeetings(ctx context.Context, city models.City) ([]models.NormalizedMeeting, error) {
	a.parent.mu.Lock()
	defer a.parent.mu.Unlock()
	a.parent.calls++
	if a.parent.err != nil {
		return nil, a.parent.err
	}
	return a.parent.meetings, nil
}

// fakeExecutor records every job it's asked to process.
type fakeExecutor struct {
	mu      sync.Mutex
	entries []models.QueueEntry
}

func (f *fakeExecutor) Process(ctx context.Context, entry models.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func testConfig() Config {
	return Config{
		PollInterval:  20 * time.Millisecond,
		DispatchBatch: 1,
		WorkerCount:   2,
		GCInterval:    time.Hour,
	}
}

func TestConductor_PollEnqueuesNewMeetingAndDispatchesIt(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCity(ctx, models.City{
		Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive,
	}))

	adapters := &fakeAdapters{meetings: []models.NormalizedMeeting{
		{VendorMeetingID: "1001", Title: "City Council", Start: time.Now(), PacketURL: "https://cityofpaloalto.primegov.com/x"},
	}}
	executor := &fakeExecutor{}

	c := New(s, q, adapters, executor, nil, testConfig())

	runCtx, cancel := context.WithCancel(ctx)
	c.Start(runCtx)
	defer func() {
		cancel()
		c.Stop()
	}()

	require.Eventually(t, func() bool {
		return executor.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	adapters.mu.Lock()
	calls := adapters.calls
	adapters.mu.Unlock()
	require.GreaterOrEqual(t, calls, 1)
}

func TestConductor_PollSkipsCityOnAdapterError(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCity(ctx, models.City{
		Banana: "paloaltoCA", Vendor: models.VendorPrimeGov, Slug: "cityofpaloalto", Status: models.CityStatusActive,
	}))

	adapters := &fakeAdapters{err: context.DeadlineExceeded}
	executor := &fakeExecutor{}

	c := New(s, q, adapters, executor, nil, testConfig())
	require.Equal(t, StateIdle, c.State())

	// Run a single poll cycle directly rather than via Start/ticker, so the
	// test doesn't race background goroutines.
	c.poll(ctx)

	require.Equal(t, StateIdle, c.State())
	require.Equal(t, 0, executor.count())

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	require.Empty(t, stats)
}

func TestConductor_StateTransitionsBackToIdleAfterPoll(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	ctx := context.Background()

	adapters := &fakeAdapters{meetings: nil}
	executor := &fakeExecutor{}
	c := New(s, q, adapters, executor, nil, testConfig())

	c.poll(ctx)
	require.Equal(t, StateIdle, c.State())
}

func TestConductor_StopHaltsWorkers(t *testing.T) {
	s, q := newTestStoreAndQueue(t)
	ctx := context.Background()

	adapters := &fakeAdapters{}
	executor := &fakeExecutor{}
	c := New(s, q, adapters, executor, nil, testConfig())

	runCtx, cancel := context.WithCancel(ctx)
	c.Start(runCtx)
	cancel()
	c.Stop()

	// Stop must return promptly once every goroutine observes the
	// cancellation; reaching here without a test timeout is the assertion.
}

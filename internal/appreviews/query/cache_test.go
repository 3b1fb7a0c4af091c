package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func counting(calls *atomic.Int32, val any, err error) Fn {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return val, err
	}
}

func gated(calls *atomic.Int32, gate <-chan struct{}, val any) Fn {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		select {
		case <-gate:
			return val, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestFetchWithinStaleWindowReusesData(t *testing.T) {
	clock := newStubClock()
	c := New(WithClock(clock))
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("apps"), Fn: counting(&calls, "v1", nil), StaleTime: 2 * time.Minute, Enabled: true}

	snap, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, "v1", snap.Data)
	assert.EqualValues(t, 1, calls.Load())

	for i := 0; i < 5; i++ {
		snap = c.Observe(q)
		assert.False(t, snap.Fetching)
		assert.False(t, snap.Stale)
	}
	clock.Advance(2*time.Minute - time.Second)
	snap = c.Observe(q)
	assert.False(t, snap.Fetching)
	assert.EqualValues(t, 1, calls.Load())
}

func TestObserveRevalidatesStaleData(t *testing.T) {
	clock := newStubClock()
	c := New(WithClock(clock))
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("apps"), Fn: counting(&calls, "v1", nil), StaleTime: time.Minute, Enabled: true}
	_, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	assert.True(t, c.Get(q.Key).Stale)

	q.Fn = counting(&calls, "v2", nil)
	snap := c.Observe(q)
	assert.True(t, snap.Fetching)
	assert.False(t, snap.Loading())
	assert.Equal(t, "v1", snap.Data, "stale data is served while revalidating")

	snap, err = c.Wait(context.Background(), q.Key)
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.Data)
	assert.False(t, snap.Stale)
	assert.EqualValues(t, 2, calls.Load())
}

func TestObserveDeduplicatesInFlightRequests(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	q := Query{Key: NewKey("reviews", "1"), Fn: gated(&calls, gate, "done"), StaleTime: time.Minute, Enabled: true}

	first := c.Observe(q)
	assert.True(t, first.Loading())
	assert.Equal(t, StatusPending, first.Status)
	for i := 0; i < 3; i++ {
		assert.True(t, c.Observe(q).Fetching)
	}

	close(gate)
	snap, err := c.Wait(context.Background(), q.Key)
	require.NoError(t, err)
	assert.Equal(t, "done", snap.Data)
	assert.EqualValues(t, 1, calls.Load())
}

func TestConcurrentFetchesShareOneWait(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := New(WithLogger(zap.New(core)))
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	q := Query{Key: NewKey("reviews", "1"), Fn: gated(&calls, gate, "done"), StaleTime: time.Minute, Enabled: true}

	type result struct {
		snap Snapshot
		err  error
	}
	results := make(chan result, 2)
	fetch := func() {
		snap, err := c.Fetch(context.Background(), q)
		results <- result{snap, err}
	}

	go fetch()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	go fetch()
	time.Sleep(50 * time.Millisecond)
	close(gate)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, "done", r.snap.Data)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 2, logs.FilterMessage("joined in-flight fetch").Len())
}

func TestFetchCallerContextEndsOnlyItsOwnWait(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	q := Query{Key: NewKey("apps"), Fn: gated(&calls, gate, "done"), StaleTime: time.Minute, Enabled: true}

	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), q)
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := c.Fetch(ctx, q)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.Fetching)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, "done", c.Get(q.Key).Data)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDisabledQueryOnlyReadsCache(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("reviews", "1"), Fn: counting(&calls, "data", nil), StaleTime: time.Minute}

	snap := c.Observe(q)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, snap.Fetching)
	assert.EqualValues(t, 0, calls.Load())

	q.Enabled = true
	_, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	q.Enabled = false
	snap = c.Observe(q)
	assert.Equal(t, "data", snap.Data)
	assert.Equal(t, StatusSuccess, snap.Status)

	q.Enabled = true
	snap = c.Observe(q)
	assert.False(t, snap.Fetching, "fresh data is reused when re-enabled")
	assert.EqualValues(t, 1, calls.Load())
}

func TestDisablingKeepsError(t *testing.T) {
	c := New()
	defer c.Close()

	boom := errors.New("boom")
	var calls atomic.Int32
	q := Query{Key: NewKey("reviews", "1"), Fn: counting(&calls, nil, boom), Enabled: true}

	_, err := c.Fetch(context.Background(), q)
	require.ErrorIs(t, err, boom)

	q.Enabled = false
	snap := c.Observe(q)
	assert.Equal(t, StatusError, snap.Status)
	assert.ErrorIs(t, snap.Err, boom)
}

func TestRefetchSupersedesInFlightRequest(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	gate := make(chan struct{})
	key := NewKey("apps")

	c.Observe(Query{Key: key, Fn: gated(&calls, gate, "old"), Enabled: true})
	c.Refetch(Query{Key: key, Fn: counting(&calls, "new", nil), Enabled: true})

	snap, err := c.Wait(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "new", snap.Data)

	// let the superseded request finish and settle
	close(gate)
	c.wg.Wait()

	snap = c.Get(key)
	assert.Equal(t, "new", snap.Data)
	assert.False(t, snap.Fetching)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRefetchIgnoresStaleness(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("apps"), Fn: counting(&calls, "v", nil), StaleTime: time.Hour, Enabled: true}
	_, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	snap := c.Refetch(q)
	assert.True(t, snap.Fetching)
	_, err = c.Wait(context.Background(), q.Key)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFailureKeepsPreviousData(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	key := NewKey("apps")
	_, err := c.Fetch(context.Background(), Query{Key: key, Fn: counting(&calls, "good", nil), Enabled: true})
	require.NoError(t, err)

	boom := errors.New("boom")
	c.Refetch(Query{Key: key, Fn: counting(&calls, nil, boom), Enabled: true})
	snap, err := c.Wait(context.Background(), key)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "good", snap.Data)
	assert.True(t, snap.HasData())

	c.Refetch(Query{Key: key, Fn: counting(&calls, "better", nil), Enabled: true})
	snap, err = c.Wait(context.Background(), key)
	require.NoError(t, err)
	assert.NoError(t, snap.Err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, "better", snap.Data)
}

func TestRetryWithoutDataClearsError(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	key := NewKey("apps")
	_, err := c.Fetch(context.Background(), Query{Key: key, Fn: counting(&calls, nil, errors.New("boom")), Enabled: true})
	require.Error(t, err)

	gate := make(chan struct{})
	snap := c.Refetch(Query{Key: key, Fn: gated(&calls, gate, "ok"), Enabled: true})
	assert.Equal(t, StatusPending, snap.Status)
	assert.NoError(t, snap.Err)
	assert.True(t, snap.Loading())

	close(gate)
	snap, err = c.Wait(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "ok", snap.Data)
}

func TestNoAutomaticRetry(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("apps"), Fn: counting(&calls, nil, errors.New("boom")), Enabled: true}

	_, err := c.Fetch(context.Background(), q)
	require.Error(t, err)
	c.wg.Wait()

	snap := c.Get(q.Key)
	assert.False(t, snap.Fetching)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInvalidateMarksStale(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	q := Query{Key: NewKey("apps"), Fn: counting(&calls, "v", nil), StaleTime: time.Hour, Enabled: true}
	_, err := c.Fetch(context.Background(), q)
	require.NoError(t, err)

	c.Invalidate(q.Key)
	snap := c.Get(q.Key)
	assert.True(t, snap.Stale)
	assert.Equal(t, "v", snap.Data)

	snap = c.Observe(q)
	assert.True(t, snap.Fetching)
	_, err = c.Wait(context.Background(), q.Key)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.False(t, c.Get(q.Key).Stale)
}

func TestKeysSettleIndependently(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	gateA := make(chan struct{})
	keyA := NewKey("reviews", "A")
	keyB := NewKey("reviews", "B")

	c.Observe(Query{Key: keyA, Fn: gated(&calls, gateA, "reviews of A"), Enabled: true})
	snapB, err := c.Fetch(context.Background(), Query{Key: keyB, Fn: counting(&calls, "reviews of B", nil), Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "reviews of B", snapB.Data)
	assert.True(t, c.Get(keyA).Fetching)

	close(gateA)
	snapA, err := c.Wait(context.Background(), keyA)
	require.NoError(t, err)
	assert.Equal(t, "reviews of A", snapA.Data)
	assert.Equal(t, "reviews of B", c.Get(keyB).Data)
}

func TestWaitHonorsContext(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	key := NewKey("apps")
	c.Observe(Query{Key: key, Fn: gated(&calls, make(chan struct{}), "never"), Enabled: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := c.Wait(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.Fetching)
}

func TestWaitUnknownKey(t *testing.T) {
	c := New()
	defer c.Close()

	snap, err := c.Wait(context.Background(), NewKey("nothing"))
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, snap.Status)
}

func TestCloseAbandonsInFlight(t *testing.T) {
	c := New()

	var calls atomic.Int32
	key := NewKey("apps")
	c.Observe(Query{Key: key, Fn: gated(&calls, make(chan struct{}), "never"), Enabled: true})

	c.Close()

	snap := c.Get(key)
	assert.False(t, snap.Fetching)
	assert.False(t, snap.HasData())

	snap = c.Refetch(Query{Key: key, Fn: counting(&calls, "late", nil), Enabled: true})
	assert.False(t, snap.Fetching)
}

func TestSubscribeNotifiesOnChanges(t *testing.T) {
	c := New()
	defer c.Close()

	var notified atomic.Int32
	cancel := c.Subscribe(func(Key) { notified.Add(1) })

	var calls atomic.Int32
	_, err := c.Fetch(context.Background(), Query{Key: NewKey("apps"), Fn: counting(&calls, "v", nil), Enabled: true})
	require.NoError(t, err)
	c.wg.Wait()

	// one notification when the request starts, one when it settles
	assert.EqualValues(t, 2, notified.Load())

	cancel()
	c.Invalidate(NewKey("apps"))
	assert.EqualValues(t, 2, notified.Load())
}

func TestTypedData(t *testing.T) {
	c := New()
	defer c.Close()

	var calls atomic.Int32
	key := NewKey("apps")

	_, ok := Data[[]string](c.Get(key))
	assert.False(t, ok)

	_, err := c.Fetch(context.Background(), Query{Key: key, Fn: counting(&calls, []string{"a"}, nil), Enabled: true})
	require.NoError(t, err)

	got, ok := Data[[]string](c.Get(key))
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got)

	_, ok = Data[int](c.Get(key))
	assert.False(t, ok)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "apps", NewKey("apps").String())
	assert.Equal(t, "reviews/123", NewKey("reviews", "123").String())
	assert.Equal(t, NewKey("reviews", "123"), Key{Resource: "reviews", Param: "123"})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
}

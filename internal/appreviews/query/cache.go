package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fn performs the request behind a key
type Fn func(ctx context.Context) (any, error)

// Query describes one observation of a key
type Query struct {
	Key Key
	Fn  Fn
	// StaleTime is how long a successful result is served without a new request
	StaleTime time.Duration
	// Enabled gates execution; a disabled query only reads the cache
	Enabled bool
}

// Option configures a Cache
type Option func(*Cache)

// WithClock sets the clock used for staleness
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache holds the state of every key observed through it. It is safe for
// concurrent use; requests run on their own goroutines and settle back into
// the cache under its lock.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	listeners map[int]func(Key)
	nextID    int

	group  singleflight.Group
	clock  Clock
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

type entry struct {
	data        any
	hasData     bool
	err         error
	status      Status
	updatedAt   time.Time
	staleTime   time.Duration
	invalidated bool

	// generation is bumped for every request started; only the request
	// holding the current generation may settle into the entry
	generation uint64
	inflight   *flight
}

type flight struct {
	generation uint64
	done       chan struct{}
}

// New creates an empty Cache
func New(opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:   make(map[Key]*entry),
		listeners: make(map[int]func(Key)),
		clock:     RealClock{},
		logger:    zap.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe returns the current state of q.Key. When q is enabled and the key
// has no data, or its data is stale or invalidated, and no request is in
// flight, a request is started in the background. Cached data keeps being
// served until that request settles.
func (c *Cache) Observe(q Query) Snapshot {
	c.mu.Lock()
	e := c.entry(q.Key)
	started := false
	if q.Enabled && q.Fn != nil && e.inflight == nil && c.needsFetch(e, q.StaleTime) {
		c.start(q, e)
		started = true
	}
	snap := c.snapshot(q.Key, e)
	c.mu.Unlock()

	if started {
		c.notify(q.Key)
	}
	return snap
}

// Refetch starts a new request for q.Key regardless of staleness. A request
// already in flight for the key is superseded and its result discarded.
func (c *Cache) Refetch(q Query) Snapshot {
	if q.Fn == nil {
		return c.Get(q.Key)
	}

	c.mu.Lock()
	e := c.entry(q.Key)
	if e.inflight != nil {
		c.logger.Debug("superseding in-flight request",
			zap.Stringer("key", q.Key),
			zap.Uint64("generation", e.inflight.generation),
		)
	}
	c.group.Forget(q.Key.String())
	c.start(q, e)
	snap := c.snapshot(q.Key, e)
	c.mu.Unlock()

	c.notify(q.Key)
	return snap
}

// Fetch observes q and waits for the key to settle. The returned error is
// the key's error after settling, or the context's error. Concurrent callers
// for the same key share a single observe-and-wait; a caller whose context
// ends stops waiting without affecting the others.
func (c *Cache) Fetch(ctx context.Context, q Query) (Snapshot, error) {
	ch := c.group.DoChan(q.Key.String(), func() (any, error) {
		c.Observe(q)
		return c.Wait(c.ctx, q.Key)
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		if res.Shared {
			c.logger.Debug("joined in-flight fetch", zap.Stringer("key", q.Key))
		}
		return snap, res.Err
	case <-ctx.Done():
		return c.Get(q.Key), ctx.Err()
	}
}

// Wait blocks until no request for key is in flight
func (c *Cache) Wait(ctx context.Context, key Key) (Snapshot, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			return Snapshot{Key: key}, nil
		}
		if e.inflight == nil {
			snap := c.snapshot(key, e)
			c.mu.Unlock()
			return snap, snap.Err
		}
		done := e.inflight.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return c.Get(key), ctx.Err()
		}
	}
}

// Get returns the current state of key without triggering a request
func (c *Cache) Get(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key}
	}
	return c.snapshot(key, e)
}

// Invalidate marks key's data stale without dropping it; the next enabled
// observation starts a request
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.invalidated = true
	}
	c.mu.Unlock()

	if ok {
		c.notify(key)
	}
}

// Subscribe registers fn to be called after any key changes. The returned
// function removes the subscription.
func (c *Cache) Subscribe(fn func(Key)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close abandons every in-flight request and waits for their goroutines
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) needsFetch(e *entry, staleTime time.Duration) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	return c.clock.Now().Sub(e.updatedAt) >= staleTime
}

func (c *Cache) isStale(e *entry) bool {
	if !e.hasData {
		return false
	}
	return e.invalidated || c.clock.Now().Sub(e.updatedAt) >= e.staleTime
}

// start must be called with c.mu held
func (c *Cache) start(q Query, e *entry) {
	if c.closed {
		return
	}

	e.generation++
	fl := &flight{generation: e.generation, done: make(chan struct{})}
	e.inflight = fl
	e.staleTime = q.StaleTime
	if !e.hasData {
		e.err = nil
		e.status = StatusPending
	}

	c.logger.Debug("starting request",
		zap.Stringer("key", q.Key),
		zap.Uint64("generation", fl.generation),
	)

	c.wg.Add(1)
	go c.run(q, fl)
}

func (c *Cache) run(q Query, fl *flight) {
	defer c.wg.Done()

	val, err := q.Fn(c.ctx)
	c.settle(q.Key, fl, val, err)
}

func (c *Cache) settle(key Key, fl *flight, val any, err error) {
	c.mu.Lock()
	defer close(fl.done)

	e, ok := c.entries[key]
	if !ok || e.inflight != fl || c.closed {
		if ok && e.inflight == fl {
			e.inflight = nil
		}
		c.mu.Unlock()
		c.logger.Debug("discarding superseded result",
			zap.Stringer("key", key),
			zap.Uint64("generation", fl.generation),
		)
		return
	}

	e.inflight = nil
	if err != nil {
		e.err = err
		e.status = StatusError
	} else {
		e.data = val
		e.hasData = true
		e.err = nil
		e.status = StatusSuccess
		e.updatedAt = c.clock.Now()
		e.invalidated = false
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("request failed", zap.Stringer("key", key), zap.Error(err))
	}
	c.notify(key)
}

func (c *Cache) snapshot(key Key, e *entry) Snapshot {
	return Snapshot{
		Key:       key,
		Status:    e.status,
		Data:      e.data,
		Err:       e.err,
		Fetching:  e.inflight != nil,
		Stale:     c.isStale(e),
		UpdatedAt: e.updatedAt,
		hasData:   e.hasData,
	}
}

func (c *Cache) notify(key Key) {
	c.mu.Lock()
	fns := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

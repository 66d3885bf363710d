// Package monthcache is a read-through cache of calendar projects keyed by
// month. Concurrent readers of the same month share one load, loaded months
// stay fresh for a fixed window, and the months around the last one read are
// prefetched in the background.
package monthcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/christopherklint97/gigcal/internal/project"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultPrefetchMonths = 2
)

// LoadFunc loads the projects of one month from the remote store.
type LoadFunc func(ctx context.Context, m project.Month) ([]project.Project, error)

// errSuperseded settles prefetch loads that were cancelled by a newer batch,
// an invalidation or Close.
var errSuperseded = errors.New("prefetch superseded")

type entry struct {
	data      []project.Project
	timestamp time.Time
	loading   bool
}

// call is one in-flight load. done is closed once data and err are set.
type call struct {
	done     chan struct{}
	data     []project.Project
	err      error
	prefetch bool
	cancel   context.CancelFunc
}

type Cache struct {
	load           LoadFunc
	ttl            time.Duration
	prefetchMonths int
	now            func() time.Time
	loc            *time.Location
	logger         *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	pending map[string]*call
	batch   map[string]*call // prefetch calls of the current batch
	stats   Stats
	closed  bool

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

type Option func(*Cache)

// WithTTL sets how long a loaded month is served without reloading.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithPrefetchMonths sets how many months on each side of a read month are
// prefetched. Zero disables prefetching.
func WithPrefetchMonths(n int) Option {
	return func(c *Cache) { c.prefetchMonths = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLocation sets the time zone months are cut in. Times passed to the
// cache are converted to it, so every caller shares one month window.
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) { c.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(load LoadFunc, opts ...Option) *Cache {
	ctx, stop := context.WithCancel(context.Background())
	c := &Cache{
		load:           load,
		ttl:            DefaultTTL,
		prefetchMonths: DefaultPrefetchMonths,
		now:            time.Now,
		loc:            time.Local,
		entries:        make(map[string]*entry),
		pending:        make(map[string]*call),
		batch:          make(map[string]*call),
		ctx:            ctx,
		stop:           stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Month returns the projects of the month containing t.
//
// A fresh entry is returned without touching the store. If the month is
// already being loaded the caller waits for that load. Otherwise the caller
// claims the month, loads it and, on success, caches the result and starts a
// prefetch of the surrounding months. A failed load leaves nothing cached.
//
// Cancelling ctx abandons the wait but never the load itself, which other
// callers may be sharing.
func (c *Cache) Month(ctx context.Context, t time.Time) ([]project.Project, error) {
	m := c.monthOf(t)
	key := m.Key()

	for {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && c.usable(e) {
			c.stats.Hits++
			data := clone(e.data)
			c.mu.Unlock()
			c.logger.Debug("cache hit", "month", key)
			return data, nil
		}

		if cl, ok := c.pending[key]; ok {
			c.stats.Joins++
			c.mu.Unlock()
			c.logger.Debug("joining pending load", "month", key, "prefetch", cl.prefetch)

			select {
			case <-cl.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if cl.err != nil && cl.prefetch {
				// Prefetch failures never reach readers; load it ourselves.
				continue
			}
			if cl.err != nil {
				return nil, cl.err
			}
			return clone(cl.data), nil
		}

		c.stats.Misses++
		cl := c.claim(key, false)
		c.mu.Unlock()
		c.logger.Debug("cache miss", "month", key)

		return c.fill(context.WithoutCancel(ctx), m, key, cl)
	}
}

func (c *Cache) fill(ctx context.Context, m project.Month, key string, cl *call) ([]project.Project, error) {
	data, err := c.load(ctx, m)
	if err == nil {
		data = project.Unique(data)
	}
	owned := c.settle(key, cl, data, err)

	if err != nil {
		c.logger.Error("month load failed", "month", key, "error", err)
		return nil, err
	}

	if owned {
		c.Prefetch(m.Start())
	}
	return clone(data), nil
}

// claim registers a pending load for key and writes its loading placeholder.
// c.mu must be held.
func (c *Cache) claim(key string, prefetch bool) *call {
	cl := &call{done: make(chan struct{}), prefetch: prefetch}
	c.entries[key] = &entry{
		data:      []project.Project{},
		timestamp: c.now(),
		loading:   true,
	}
	c.pending[key] = cl
	return cl
}

// settle publishes the result of cl to its waiters. The cache is only
// written while cl still owns key; an invalidated or superseded load just
// hands its result to the callers already waiting on it. settle reports
// whether cl still owned key.
func (c *Cache) settle(key string, cl *call, data []project.Project, err error) bool {
	c.mu.Lock()
	owned := c.pending[key] == cl
	if owned {
		delete(c.pending, key)
		if err != nil {
			delete(c.entries, key)
		} else {
			c.entries[key] = &entry{data: data, timestamp: c.now()}
		}
	}
	if c.batch[key] == cl {
		delete(c.batch, key)
	}
	if err != nil && !errors.Is(err, errSuperseded) {
		c.stats.Errors++
	}
	cl.data, cl.err = data, err
	c.mu.Unlock()

	if cl.cancel != nil {
		cl.cancel()
	}
	close(cl.done)
	return owned
}

// Invalidate drops the cached entry and any pending registration for the
// month containing t, so the next read loads it again.
func (c *Cache) Invalidate(t time.Time) {
	key := c.monthOf(t).Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked(key)
	c.logger.Debug("cache invalidated", "month", key)
}

// InvalidateAll drops every cached month and pending registration.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.dropLocked(key)
	}
	for key := range c.pending {
		c.dropLocked(key)
	}
	c.logger.Debug("cache cleared")
}

func (c *Cache) dropLocked(key string) {
	delete(c.entries, key)
	delete(c.pending, key)
	if cl, ok := c.batch[key]; ok {
		cl.cancel()
		delete(c.batch, key)
	}
}

// Close cancels background prefetches and waits for them to finish.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

// usable reports whether readers may be served from e. c.mu must be held.
func (c *Cache) usable(e *entry) bool {
	return !e.loading && c.fresh(e)
}

func (c *Cache) fresh(e *entry) bool {
	return c.now().Sub(e.timestamp) < c.ttl
}

func (c *Cache) monthOf(t time.Time) project.Month {
	loc := c.loc
	if loc == nil {
		loc = time.Local
	}
	return project.MonthOf(t.In(loc))
}

// clone copies ps down to the related users, so callers never share memory
// with a cached entry.
func clone(ps []project.Project) []project.Project {
	out := make([]project.Project, len(ps))
	copy(out, ps)
	for i := range out {
		if u := out[i].Client; u != nil {
			c := *u
			out[i].Client = &c
		}
		if u := out[i].Manager; u != nil {
			m := *u
			out[i].Manager = &m
		}
		if e := out[i].EndDate; e != nil {
			end := *e
			out[i].EndDate = &end
		}
	}
	return out
}

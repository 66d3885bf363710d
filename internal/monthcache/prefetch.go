package monthcache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/gigcal/internal/project"
)

// Prefetch loads, in the background, the months around the one containing t
// that are neither fresh nor already loading.
//
// Each call starts a new batch that supersedes the previous one: loads of the
// old batch for months the new batch does not cover are cancelled and their
// placeholders dropped, loads for months it does cover carry on as part of the
// new batch. Prefetch failures are logged and never returned.
func (c *Cache) Prefetch(t time.Time) {
	if c.prefetchMonths <= 0 {
		return
	}
	center := c.monthOf(t)

	months := make([]project.Month, 0, 2*c.prefetchMonths)
	for i := 1; i <= c.prefetchMonths; i++ {
		months = append(months, center.Add(-i))
	}
	for i := 1; i <= c.prefetchMonths; i++ {
		months = append(months, center.Add(i))
	}

	want := make(map[string]bool, len(months))
	for _, m := range months {
		want[m.Key()] = true
	}

	type job struct {
		ctx   context.Context
		month project.Month
		call  *call
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	for key, cl := range c.batch {
		if want[key] {
			continue
		}
		cl.cancel()
		if c.pending[key] == cl {
			delete(c.pending, key)
			delete(c.entries, key)
		}
		delete(c.batch, key)
	}

	var jobs []job
	for _, m := range months {
		key := m.Key()
		if e, ok := c.entries[key]; ok && c.usable(e) {
			continue
		}
		if _, ok := c.pending[key]; ok {
			continue
		}

		cl := c.claim(key, true)
		ctx, cancel := context.WithCancel(c.ctx)
		cl.cancel = cancel
		c.batch[key] = cl
		c.stats.Prefetches++
		jobs = append(jobs, job{ctx: ctx, month: m, call: cl})
	}

	if len(jobs) == 0 {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug("prefetch started", "around", center.Key(), "months", len(jobs))

	go func() {
		defer c.wg.Done()

		var g errgroup.Group
		for _, j := range jobs {
			g.Go(func() error {
				c.prefetchOne(j.ctx, j.month, j.call)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (c *Cache) prefetchOne(ctx context.Context, m project.Month, cl *call) {
	key := m.Key()

	data, err := c.load(ctx, m)
	if err == nil {
		data = project.Unique(data)
	}
	if ctx.Err() != nil {
		data, err = nil, errSuperseded
	}
	c.settle(key, cl, data, err)

	switch {
	case errors.Is(err, errSuperseded):
		c.logger.Debug("prefetch superseded", "month", key)
	case err != nil:
		c.logger.Warn("prefetch failed", "month", key, "error", err)
	default:
		c.logger.Debug("prefetched", "month", key, "projects", len(data))
	}
}

// Warm loads the current, next and previous month of now concurrently and
// returns the first error, if any.
func (c *Cache) Warm(ctx context.Context, now time.Time) error {
	center := c.monthOf(now)

	var g errgroup.Group
	for _, m := range []project.Month{center, center.Add(1), center.Add(-1)} {
		g.Go(func() error {
			if _, err := c.Month(ctx, m.Start()); err != nil {
				c.logger.Warn("initial load failed", "month", m.Key(), "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

package diagnosis

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/hermes/errors"
	"github.com/grovetools/hermes/internal/clock"
	"github.com/grovetools/hermes/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls   atomic.Int32
	respond func(n int32) (*models.Diagnosis, error)
}

func (f *fakeFetcher) GetDiagnosis(_ context.Context, id string) (*models.Diagnosis, error) {
	n := f.calls.Add(1)
	return f.respond(n)
}

func ready(id string) *models.Diagnosis {
	return &models.Diagnosis{TicketID: id, Confidence: 0.8, RootCause: "expired key"}
}

func newCache(f Fetcher, clk clock.Clock) *Cache {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(f, WithClock(clk), WithLogger(logrus.NewEntry(l)))
}

func TestCacheServesFreshEntries(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) { return ready("T1"), nil }}
	c := newCache(f, clk)

	d, err := c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "expired key", d.RootCause)

	clk.Advance(DefaultTTL - time.Second)
	_, err = c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load(), "served from cache within the freshness window")

	clk.Advance(time.Second)
	_, err = c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "refetched once stale")
}

func TestCacheDoesNotStoreProcessing(t *testing.T) {
	f := &fakeFetcher{respond: func(n int32) (*models.Diagnosis, error) {
		if n == 1 {
			return &models.Diagnosis{Status: models.DiagnosisProcessing}, nil
		}
		return ready("T1"), nil
	}}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	d, err := c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, d.Pending())
	assert.Equal(t, 0, c.Len())

	d, err = c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.False(t, d.Pending())
	assert.Equal(t, 1, c.Len())
}

func TestCacheRetriesOnceAfterDelay(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	f := &fakeFetcher{respond: func(n int32) (*models.Diagnosis, error) {
		if n == 1 {
			return nil, errors.Transport("http://backend", fmt.Errorf("reset"))
		}
		return ready("T1"), nil
	}}
	c := newCache(f, clk)

	type result struct {
		d   *models.Diagnosis
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := c.Get(context.Background(), "T1")
		done <- result{d, err}
	}()

	clk.WaitForTimers(1)
	got, ok := clk.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, DefaultRetryDelay, got)
	clk.Advance(DefaultRetryDelay)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "T1", r.d.TicketID)
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not return")
	}
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestCacheGivesUpAfterRetry(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) {
		return nil, errors.HTTPStatus("GET", "http://backend", 500)
	}}
	c := newCache(f, clk)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "T1")
		errs <- err
	}()
	clk.WaitForTimers(1)
	clk.Advance(DefaultRetryDelay)

	err := <-errs
	assert.Equal(t, errors.ErrCodeHTTPStatus, errors.GetCode(err))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestCacheNotFoundIsNotRetried(t *testing.T) {
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) {
		return nil, errors.HTTPStatus("GET", "http://backend", 404)
	}}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	_, err := c.Get(context.Background(), "T1")
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) {
		<-release
		return ready("T1"), nil
	}}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Get(context.Background(), "T1")
			assert.NoError(t, err)
			assert.Equal(t, "T1", d.TicketID)
		}()
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

// blockingFetcher answers once released, or fails when its context ends.
type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (f *blockingFetcher) GetDiagnosis(ctx context.Context, id string) (*models.Diagnosis, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
		return ready(id), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCacheCancelledCallerDoesNotFailOthers(t *testing.T) {
	f := &blockingFetcher{release: make(chan struct{})}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(first, "T1")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		d   *models.Diagnosis
		err error
	}
	second := make(chan result, 1)
	go func() {
		d, err := c.Get(context.Background(), "T1")
		second <- result{d, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "T1", r.d.TicketID)
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller did not return")
	}
	assert.Equal(t, int32(1), f.calls.Load())
	_, ok := c.Peek("T1")
	assert.True(t, ok, "the shared result is cached")
}

func TestCacheInvalidate(t *testing.T) {
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) { return ready("T1"), nil }}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	_, err := c.Get(context.Background(), "T1")
	require.NoError(t, err)
	_, ok := c.Peek("T1")
	require.True(t, ok)

	c.Invalidate("T1")
	_, ok = c.Peek("T1")
	assert.False(t, ok)

	_, err = c.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestCacheReturnsCopies(t *testing.T) {
	f := &fakeFetcher{respond: func(int32) (*models.Diagnosis, error) { return ready("T1"), nil }}
	c := newCache(f, clock.Fake(time.Unix(0, 0)))

	d, err := c.Get(context.Background(), "T1")
	require.NoError(t, err)
	d.RootCause = "mutated"

	again, ok := c.Peek("T1")
	require.True(t, ok)
	assert.Equal(t, "expired key", again.RootCause)
}

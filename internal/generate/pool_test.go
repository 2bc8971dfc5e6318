package generate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolCountsFailures(t *testing.T) {
	p := newPool(context.Background(), 3)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, p.Go(fmt.Sprintf("job %d", i), func(context.Context) error {
			ran.Add(1)
			if i%2 == 0 {
				return errors.New("bad sample")
			}
			return nil
		}))
	}

	failed, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, failed)
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolStopsOnSystemicError(t *testing.T) {
	p := newPool(context.Background(), 1)

	require.True(t, p.Go("first", func(context.Context) error {
		return fmt.Errorf("disk gone: %w", ErrSystemic)
	}))

	// With one worker the next job cannot start before the first has
	// returned and stopped the pool.
	started := p.Go("second", func(context.Context) error {
		t.Error("job ran after systemic failure")
		return nil
	})
	assert.False(t, started)
	assert.True(t, p.Stopped())

	failed, err := p.Wait()
	assert.ErrorIs(t, err, ErrSystemic)
	assert.Zero(t, failed)
}

func TestPoolParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPool(ctx, 2)
	assert.False(t, p.Go("job", func(context.Context) error { return nil }))

	_, err := p.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	p := newPool(context.Background(), workers)

	var mu sync.Mutex
	running, peak := 0, 0
	for i := 0; i < 10; i++ {
		p.Go("job", func(context.Context) error {
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		})
	}
	_, err := p.Wait()
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, workers)
}

type scriptedInpainter struct {
	mu    sync.Mutex
	calls int
	fail  map[int]bool // 1-based call numbers that fail
}

func (s *scriptedInpainter) Inpaint(_ context.Context, img *image.RGBA, _ *image.Alpha) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail[s.calls] {
		return nil, errors.New("service unavailable")
	}
	return img, nil
}

func TestFirstCallGuard(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	mask := image.NewAlpha(img.Bounds())

	t.Run("first failure is systemic", func(t *testing.T) {
		inner := &scriptedInpainter{fail: map[int]bool{1: true}}
		g := &firstCallGuard{inner: inner}

		_, err := g.Inpaint(context.Background(), img, mask)
		assert.ErrorIs(t, err, ErrSystemic)

		_, err = g.Inpaint(context.Background(), img, mask)
		assert.ErrorIs(t, err, ErrSystemic)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("later failure is per sample", func(t *testing.T) {
		inner := &scriptedInpainter{fail: map[int]bool{2: true}}
		g := &firstCallGuard{inner: inner}

		_, err := g.Inpaint(context.Background(), img, mask)
		require.NoError(t, err)

		_, err = g.Inpaint(context.Background(), img, mask)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSystemic)

		_, err = g.Inpaint(context.Background(), img, mask)
		assert.NoError(t, err)
		assert.Equal(t, 3, inner.calls)
	})
}

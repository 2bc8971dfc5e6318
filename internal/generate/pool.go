package generate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"scenegen/internal/inpaint"
)

// pool runs jobs on a bounded number of goroutines. A job error is logged
// and counted; a systemic one also stops the pool so nothing new starts.
type pool struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	wg  sync.WaitGroup
	sem chan struct{}

	mu     sync.Mutex
	failed int
	err    error
}

func newPool(ctx context.Context, workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	inner, cancel := context.WithCancel(ctx)
	return &pool{
		parent: ctx,
		ctx:    inner,
		cancel: cancel,
		sem:    make(chan struct{}, workers),
	}
}

// Go starts job once a worker is free. It returns false, without running
// job, when the pool has been stopped.
func (p *pool) Go(name string, job func(ctx context.Context) error) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.sem <- struct{}{}: // acquire
	}
	if p.ctx.Err() != nil {
		<-p.sem
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }() // release

		if err := job(p.ctx); err != nil {
			p.fail(name, err)
		}
	}()
	return true
}

// Stopped reports whether the pool accepts no more jobs.
func (p *pool) Stopped() bool {
	return p.ctx.Err() != nil
}

func (p *pool) fail(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if errors.Is(err, ErrSystemic) {
		if p.err == nil {
			p.err = err
			log.Printf("aborting run at %s: %v", name, err)
		}
		p.cancel()
		return
	}
	p.failed++
	log.Printf("skipping %s: %v", name, err)
}

// Wait blocks until every started job has returned. It reports the number
// of failed jobs and the error that stopped the pool, if any.
func (p *pool) Wait() (int, error) {
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.failed, p.err
	}
	return p.failed, p.parent.Err()
}

// firstCallGuard promotes a failure of the first inpainting call of a run
// to a systemic error; later failures stay per-sample. Concurrent callers
// wait for the first call to finish.
type firstCallGuard struct {
	inner inpaint.Inpainter

	mu     sync.Mutex
	probed bool
	err    error
}

func (g *firstCallGuard) Inpaint(ctx context.Context, img *image.RGBA, mask *image.Alpha) (*image.RGBA, error) {
	g.mu.Lock()
	if !g.probed {
		defer g.mu.Unlock()
		g.probed = true
		out, err := g.inner.Inpaint(ctx, img, mask)
		if err != nil {
			g.err = fmt.Errorf("first inpainting call failed: %v: %w", err, ErrSystemic)
			return nil, g.err
		}
		return out, nil
	}
	err := g.err
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return g.inner.Inpaint(ctx, img, mask)
}

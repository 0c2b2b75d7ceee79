package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gandtscales/scalesite/pkg/site"
)

var errPoolStopped = errors.New("render pool is stopped")

// renderJob is one route to render and write.
type renderJob struct {
	Route site.Route
	JobID int
}

// renderResult reports a written page.
type renderResult struct {
	Path  string
	File  string
	Bytes int64
	JobID int
}

// renderError reports a route that failed to render or write.
type renderError struct {
	Path string
	Err  error
}

// renderPool renders routes on a fixed set of goroutines and writes each
// page below outDir.
//
// Usage:
//
//	pool := newRenderPool(ctx, workers, renderer, outDir, logger)
//	pool.Start()
//	defer pool.Stop()
//
//	go func() {
//	    for i, r := range routes {
//	        if err := pool.Submit(renderJob{Route: r, JobID: i}); err != nil {
//	            return
//	        }
//	    }
//	    pool.FinishSubmitting()
//	}()
//
//	// read len(routes) messages from Results() and Errors()
type renderPool struct {
	numWorkers int
	renderer   *site.Renderer
	outDir     string
	jobs       chan renderJob
	results    chan renderResult
	errors     chan renderError
	wg         sync.WaitGroup
	logger     *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	jobsSubmitted atomic.Int64
	jobsProcessed atomic.Int64
	jobsFailed    atomic.Int64
	bytesWritten  atomic.Int64
}

func newRenderPool(parent context.Context, numWorkers int, renderer *site.Renderer, outDir string, logger *slog.Logger) *renderPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(parent)

	return &renderPool{
		numWorkers: numWorkers,
		renderer:   renderer,
		outDir:     outDir,
		jobs:       make(chan renderJob, numWorkers*2),
		results:    make(chan renderResult, numWorkers),
		errors:     make(chan renderError, numWorkers),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start spawns the workers. Calling it twice is a no-op.
func (p *renderPool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Warn("Render pool already started")
		return
	}

	p.logger.Debug("Starting render pool", "workers", p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *renderPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processJob(id, job)
		}
	}
}

func (p *renderPool) processJob(workerID int, job renderJob) {
	n, err := p.writePage(job.Route)
	if err != nil {
		p.logger.Debug("Render failed", "worker_id", workerID, "path", job.Route.Path, "error", err)
		p.jobsFailed.Add(1)
		select {
		case p.errors <- renderError{Path: job.Route.Path, Err: err}:
		case <-p.ctx.Done():
		}
		return
	}

	p.jobsProcessed.Add(1)
	p.bytesWritten.Add(n)
	select {
	case p.results <- renderResult{Path: job.Route.Path, File: job.Route.File(), Bytes: n, JobID: job.JobID}:
	case <-p.ctx.Done():
	}
}

func (p *renderPool) writePage(route site.Route) (int64, error) {
	page, err := p.renderer.Render(route.Path, nil)
	if err != nil {
		return 0, err
	}

	dest := filepath.Join(p.outDir, filepath.FromSlash(route.File()))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(dest, page.Body, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write page: %w", err)
	}
	return int64(len(page.Body)), nil
}

// Submit enqueues a job. It blocks while the queue is full and returns an
// error once the pool is stopped or its context is done.
func (p *renderPool) Submit(job renderJob) error {
	if p.stopped.Load() {
		return errPoolStopped
	}

	select {
	case <-p.ctx.Done():
		return fmt.Errorf("render pool cancelled: %w", p.ctx.Err())
	case p.jobs <- job:
		p.jobsSubmitted.Add(1)
		return nil
	}
}

// Results returns the channel of written pages.
func (p *renderPool) Results() <-chan renderResult {
	return p.results
}

// Errors returns the channel of failed routes.
func (p *renderPool) Errors() <-chan renderError {
	return p.errors
}

// FinishSubmitting closes the job queue so workers exit once it drains.
// Only the submitting goroutine may call it. Safe to call more than once.
func (p *renderPool) FinishSubmitting() {
	if p.jobsClosed.CompareAndSwap(false, true) {
		close(p.jobs)
		p.logger.Debug("Render queue closed", "total_submitted", p.jobsSubmitted.Load())
	}
}

// Stop cancels outstanding work, waits for the workers and closes the
// result channels. Safe to call more than once.
func (p *renderPool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}

	p.cancel()
	p.wg.Wait()

	close(p.results)
	close(p.errors)

	p.logger.Debug("Render pool stopped",
		"jobs_submitted", p.jobsSubmitted.Load(),
		"jobs_processed", p.jobsProcessed.Load(),
		"jobs_failed", p.jobsFailed.Load())
}

// Stats returns a snapshot of the pool counters.
func (p *renderPool) Stats() renderPoolStats {
	return renderPoolStats{
		NumWorkers:    p.numWorkers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsProcessed: p.jobsProcessed.Load(),
		JobsFailed:    p.jobsFailed.Load(),
		BytesWritten:  p.bytesWritten.Load(),
	}
}

type renderPoolStats struct {
	NumWorkers    int
	JobsSubmitted int64
	JobsProcessed int64
	JobsFailed    int64
	BytesWritten  int64
}

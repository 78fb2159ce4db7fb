// Package worker runs bounded concurrent jobs and paces outbound requests.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// pool manages a fixed number of workers that execute jobs concurrently
type pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	queueOnce  sync.Once
	closeOnce  sync.Once
}

// newPool creates a pool whose workers stop when ctx is done
func newPool(ctx context.Context, workers int) *pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

func (p *pool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// submit blocks while the queue is full and drops the job once the pool's
// context is done
func (p *pool) submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// collect drains results until every worker has exited
func (p *pool) collect() []Result {
	go func() {
		p.wg.Wait()
		p.closeOnce.Do(func() { close(p.results) })
		p.cancelFunc()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

func (p *pool) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Run executes jobs on a fresh pool of the given size and returns the
// results in job order. Jobs not started before ctx is done have a nil result.
func Run(ctx context.Context, workers int, jobs []Job) []Result {
	out := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return out
	}

	p := newPool(ctx, workers)
	p.start()

	go func() {
		for i, job := range jobs {
			p.submit(&indexedJob{index: i, job: job})
		}
		p.closeQueue()
	}()

	for _, r := range p.collect() {
		if ir, ok := r.(*indexedResult); ok {
			out[ir.index] = ir.result
		}
	}
	return out
}

type indexedJob struct {
	index int
	job   Job
}

func (j *indexedJob) Execute(ctx context.Context) Result {
	return &indexedResult{index: j.index, result: j.job.Execute(ctx)}
}

type indexedResult struct {
	index  int
	result Result
}

func (r *indexedResult) GetError() error {
	if r.result == nil {
		return nil
	}
	return r.result.GetError()
}

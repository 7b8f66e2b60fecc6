package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"gridetl/internal/config"
	"gridetl/internal/logging"
	"gridetl/internal/model"
)

// ErrPoolStopped fails requests that were queued, or submitted, after the
// pool stopped serving.
var ErrPoolStopped = errors.New("report pool stopped")

// Ticket identifies a submitted request. Done receives exactly one Outcome
// and is then closed.
type Ticket struct {
	ID   int64
	Done <-chan Outcome
}

type job struct {
	log  model.GenerationLog
	req  Request
	done chan Outcome
}

// Pool runs requests on a fixed number of supervised workers fed by a
// bounded queue. A running request is never cancelled: workers detach it
// from the pool's context, so stopping the pool only stops new pickups.
type Pool struct {
	pipeline *Pipeline
	jobs     chan job
	sup      *suture.Supervisor
	log      zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewPool builds a pool with cfg.Workers workers (at least one) and room
// for cfg.QueueSize waiting requests. Call Serve to start it.
func NewPool(p *Pipeline, cfg config.ReportConfig) *Pool {
	workers := max(cfg.Workers, 1)
	pool := &Pool{
		pipeline: p,
		jobs:     make(chan job, max(cfg.QueueSize, 0)),
		log:      logging.For("report-pool"),
		stopped:  make(chan struct{}),
	}
	pool.sup = suture.New("report-pool", suture.Spec{
		EventHook: func(e suture.Event) {
			pool.log.Warn().Str("event", e.String()).Msg("supervisor event")
		},
	})
	for i := range workers {
		pool.sup.Add(&worker{id: i, pool: pool})
	}
	return pool
}

// Serve runs the workers until ctx is done. It implements suture.Service so
// the pool can itself be supervised. A pool serves once: when Serve returns,
// every request still queued is failed with ErrPoolStopped and later
// submissions are rejected.
func (p *Pool) Serve(ctx context.Context) error {
	err := p.sup.Serve(ctx)
	p.stopOnce.Do(func() { close(p.stopped) })
	p.drain()
	return err
}

// drain fails every queued job.
func (p *Pool) drain() {
	for {
		select {
		case j := <-p.jobs:
			p.abandon(j, ErrPoolStopped)
		default:
			return
		}
	}
}

// abandon records j as failed without running it and delivers the outcome.
func (p *Pool) abandon(j job, cause error) {
	t := &tracker{p: p.pipeline, log: j.log, begin: time.Now()}
	if err := t.finish(context.Background(), nil, cause); err != nil {
		p.log.Error().Err(err).Int64("log_id", j.log.ID).Msg("failed to record abandoned request")
	}
	j.done <- Outcome{LogID: j.log.ID, Status: t.log.Status, Err: cause}
	close(j.done)
}

// Submit records a queued Generation Log for r and hands it to a worker.
// It blocks while the queue is full; if ctx ends first the log is marked
// failed and ctx's error returned. Submitting to a stopped pool fails the
// log with ErrPoolStopped. Failures after that are recorded in the log and
// delivered on the ticket, never returned here.
func (p *Pool) Submit(ctx context.Context, r Request) (Ticket, error) {
	select {
	case <-p.stopped:
		return Ticket{}, ErrPoolStopped
	default:
	}
	l, err := p.pipeline.Enqueue(ctx, &r)
	if err != nil {
		return Ticket{}, err
	}
	done := make(chan Outcome, 1)
	j := job{log: l, req: r, done: done}
	select {
	case p.jobs <- j:
		// Serve may have drained the queue just before the send landed.
		select {
		case <-p.stopped:
			p.drain()
		default:
		}
		return Ticket{ID: l.ID, Done: done}, nil
	case <-p.stopped:
		p.abandon(j, ErrPoolStopped)
		return Ticket{ID: l.ID}, ErrPoolStopped
	case <-ctx.Done():
		p.abandon(j, ctx.Err())
		return Ticket{ID: l.ID}, ctx.Err()
	}
}

// Poll reads the current state of a submitted request.
func (p *Pool) Poll(ctx context.Context, id int64) (model.GenerationLog, error) {
	return p.pipeline.Poll(ctx, id)
}

type worker struct {
	id   int
	pool *Pool
}

func (w *worker) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-w.pool.jobs:
			out, _ := w.pool.pipeline.Run(context.WithoutCancel(ctx), j.log, j.req)
			j.done <- out
			close(j.done)
		}
	}
}

func (w *worker) String() string { return fmt.Sprintf("report-worker-%d", w.id) }

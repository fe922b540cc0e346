package consumer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dberror "dexql/pkg/error"
	"dexql/pkg/iterator"
	"dexql/pkg/logging"
	"dexql/pkg/row"
)

// Job is one pipeline: an iterator and the receiver of its rows.
type Job struct {
	// ID is assigned by Run when left zero.
	ID       uuid.UUID
	Name     string
	Iterator iterator.BatchIterator[row.Row]
	Receiver RowReceiver
}

// Executor runs jobs concurrently. The first failing job cancels the
// others and kills their iterators.
type Executor struct {
	// Concurrency bounds the number of jobs running at once; zero means
	// unbounded.
	Concurrency int
	// LoadTimeout applies to every batch load of every job.
	LoadTimeout time.Duration
}

// Run drives every job and waits for all of them. The returned error is the
// first job error; kills carry JOB_KILLED.
func (e *Executor) Run(ctx context.Context, jobs ...*Job) error {
	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for _, job := range jobs {
		if job.ID == uuid.Nil {
			job.ID = uuid.New()
		}
		g.Go(func() error {
			return e.runJob(gctx, job)
		})
	}
	return g.Wait()
}

func (e *Executor) runJob(ctx context.Context, job *Job) error {
	log := logging.WithJob(job.ID).With("job", job.Name)
	log.Debug("job started")
	start := time.Now()

	// Drive only sees the cancellation while loading; killing the iterator
	// also stops jobs whose rows are already in memory.
	stop := context.AfterFunc(ctx, func() { job.Iterator.Kill(context.Cause(ctx)) })
	defer stop()

	var opts []DriveOption
	if e.LoadTimeout > 0 {
		opts = append(opts, WithLoadTimeout(e.LoadTimeout))
	}
	err := Drive(ctx, job.Iterator, job.Receiver, opts...)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		log.Debug("job finished", "elapsed", elapsed)
		return nil
	case iterator.IsKilled(err):
		log.Info("job killed", "elapsed", elapsed, "cause", err)
		killed := dberror.New(dberror.ErrCategoryCancelled, dberror.CodeJobKilled, "job killed").
			WithDetail("job %s (%s)", job.ID, job.Name).
			In("run job", "executor")
		killed.Cause = err
		return killed
	default:
		log.Warn("job failed", "elapsed", elapsed, "error", err)
		return dberror.Wrap(err, dberror.CodeExecutionFailed, "run job", "executor")
	}
}

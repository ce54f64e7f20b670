// Package batch sequences independent transcode jobs. A submitted batch becomes
// a Session whose jobs are dispatched in submission order to a bounded set of
// workers; results and aggregate stats can be read at any time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/transcode"
	"github.com/chirag127/TinyImage/internal/validate"
)

// ErrShutdown is returned by Submit after Shutdown.
var ErrShutdown = errors.New("orchestrator is shut down")

// Transcoder is the engine a worker calls for each job.
type Transcoder interface {
	Transcode(ctx context.Context, in codec.ImageInput, p codec.Profile) (*transcode.Output, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Workers bounds concurrent transcodes across all sessions. Zero means 1.
	Workers int
	// Publisher receives every job transition. Optional.
	Publisher EventPublisher
	Logger    *slog.Logger
	// Now is the clock used for job timestamps. Defaults to time.Now.
	Now func() time.Time
}

type task struct {
	session *Session
	jobID   string
}

// Orchestrator owns the worker pool and every live session.
type Orchestrator struct {
	engine    Transcoder
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
	workers   int

	tasks    chan task
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// New starts the worker pool.
func New(engine Transcoder, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	o := &Orchestrator{
		engine:    engine,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
		workers:   opts.Workers,
		tasks:     make(chan task),
		stop:      make(chan struct{}),
		sessions:  make(map[string]*Session),
	}
	for i := 0; i < opts.Workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

// Workers is the size of the worker pool.
func (o *Orchestrator) Workers() int { return o.workers }

// Submit validates the batch and schedules one job per image. Per-image
// problems never fail Submit; they surface as failed jobs.
func (o *Orchestrator) Submit(ctx context.Context, images []codec.ImageInput, p codec.Profile, limits validate.Limits) (*Session, error) {
	if err := validate.BatchSize(len(images), limits); err != nil {
		return nil, err
	}
	if err := validate.Profile(p); err != nil {
		return nil, err
	}
	limits = limits.WithDefaults()

	ids := make([]string, len(images))
	seen := make(map[string]bool, len(images))
	for i, in := range images {
		id := in.ID
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, errs.New(errs.CodeDuplicateJobID, "job id %q appears more than once", id)
		}
		seen[id] = true
		ids[i] = id
	}
	for i := range ids {
		if ids[i] != "" {
			continue
		}
		id := uuid.NewString()
		for seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		ids[i] = id
	}

	now := o.now()
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		ID:        uuid.NewString(),
		Profile:   p,
		Limits:    limits,
		CreatedAt: now,
		ctx:       sctx,
		cancel:    cancel,
		now:       o.now,
		order:     ids,
		jobs:      make(map[string]Job, len(images)),
		inputs:    make(map[string]codec.ImageInput, len(images)),
		outputs:   make(map[string][]byte),
		remaining: len(images),
		done:      make(chan struct{}),
	}
	s.notify = func(j Job) { o.emit(s, j) }
	for i, in := range images {
		s.jobs[ids[i]] = newJob(ids[i], i, in, now)
		s.inputs[ids[i]] = in
	}
	initial := s.jobsLocked()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	o.sessions[s.ID] = s
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info("batch submitted",
		"session_id", s.ID,
		"jobs", len(images),
		"profile", p.String(),
	)
	for _, j := range initial {
		o.emit(s, j)
	}

	go o.dispatch(s)
	return s, nil
}

// dispatch feeds a session's jobs to the pool in submission order. The task
// channel is unbuffered, so a job is handed over only when a worker is free.
func (o *Orchestrator) dispatch(s *Session) {
	defer o.wg.Done()
	for _, id := range s.order {
		if !s.pending(id) {
			continue
		}
		select {
		case o.tasks <- task{session: s, jobID: id}:
		case <-s.ctx.Done():
			return
		case <-o.stop:
			return
		}
	}
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stop:
			return
		case t := <-o.tasks:
			o.run(t)
		}
	}
}

func (o *Orchestrator) run(t task) {
	s := t.session
	job, in, ok := s.begin(t.jobID)
	if !ok {
		return
	}
	log := o.logger.With("session_id", s.ID, "job_id", job.ID)
	log.Debug("job processing", "filename", job.Filename, "size", in.Size())

	out, err := o.process(s.ctx, in, s.Profile, s.Limits)
	job = s.finish(t.jobID, out, err)

	switch job.Status {
	case StatusCompleted:
		log.Info("job completed",
			"original", job.OriginalSize,
			"compressed", job.CompressedSize,
			"ratio", job.CompressionRatio,
			"duration", job.Duration(),
		)
	case StatusFailed:
		log.Warn("job failed", "code", job.ErrorCode, "err", job.Error)
	}
}

// process validates and transcodes one input, converting a codec panic into
// an encode error local to the job.
func (o *Orchestrator) process(ctx context.Context, in codec.ImageInput, p codec.Profile, limits validate.Limits) (out *transcode.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errs.New(errs.CodeEncode, "codec panic: %v", r)
		}
	}()
	if err := validate.Input(in, limits); err != nil {
		return nil, err
	}
	return o.engine.Transcode(ctx, in, p)
}

func (o *Orchestrator) emit(s *Session, j Job) {
	if o.publisher == nil {
		return
	}
	ev := Event{SessionID: s.ID, Job: j, Timestamp: o.now()}
	if err := o.publisher.Publish(s.ctx, ev); err != nil {
		o.logger.Warn("publish job event",
			"session_id", s.ID,
			"job_id", j.ID,
			"status", j.Status,
			"err", err,
		)
	}
}

// Session looks up a live session.
func (o *Orchestrator) Session(id string) (*Session, error) {
	o.mu.RLock()
	s, ok := o.sessions[id]
	o.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.CodeUnknownSession, "unknown session %q", id)
	}
	return s, nil
}

// Sessions returns the ids of every live session.
func (o *Orchestrator) Sessions() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	return ids
}

// JobStatus returns one job's snapshot.
func (o *Orchestrator) JobStatus(sessionID, jobID string) (Job, error) {
	s, err := o.Session(sessionID)
	if err != nil {
		return Job{}, err
	}
	return s.Job(jobID)
}

// Output returns a completed job's snapshot and bytes.
func (o *Orchestrator) Output(sessionID, jobID string) (Job, []byte, error) {
	s, err := o.Session(sessionID)
	if err != nil {
		return Job{}, nil, err
	}
	return s.Output(jobID)
}

// Stats aggregates a session's current snapshot.
func (o *Orchestrator) Stats(sessionID string) (Stats, error) {
	s, err := o.Session(sessionID)
	if err != nil {
		return Stats{}, err
	}
	return s.Stats(), nil
}

// Cancel cancels a session's pending jobs.
func (o *Orchestrator) Cancel(sessionID string) (int, error) {
	s, err := o.Session(sessionID)
	if err != nil {
		return 0, err
	}
	n := s.Cancel()
	o.logger.Info("batch cancelled", "session_id", s.ID, "cancelled", n)
	return n, nil
}

// Discard cancels a session and forgets it, dropping all buffered bytes.
func (o *Orchestrator) Discard(sessionID string) error {
	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	delete(o.sessions, sessionID)
	o.mu.Unlock()
	if !ok {
		return errs.New(errs.CodeUnknownSession, "unknown session %q", sessionID)
	}
	s.discard()
	o.logger.Debug("batch discarded", "session_id", sessionID)
	return nil
}

// Reap discards finished sessions whose last job ended at least maxAge ago.
func (o *Orchestrator) Reap(maxAge time.Duration) int {
	now := o.now()
	o.mu.RLock()
	var stale []string
	for id, s := range o.sessions {
		if s.Finished() && now.Sub(s.FinishedAt()) >= maxAge {
			stale = append(stale, id)
		}
	}
	o.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if o.Discard(id) == nil {
			n++
		}
	}
	if n > 0 {
		o.logger.Info("reaped sessions", "count", n)
	}
	return n
}

// Shutdown refuses new batches, cancels pending jobs and waits for in-flight
// jobs and workers to exit.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	sessions := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		sessions = append(sessions, s)
	}
	o.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
	o.stopOnce.Do(func() { close(o.stop) })

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for workers: %w", ctx.Err())
	}
}

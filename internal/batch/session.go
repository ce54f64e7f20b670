package batch

import (
	"context"
	"sync"
	"time"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/transcode"
	"github.com/chirag127/TinyImage/internal/validate"
)

// Session is one submitted batch. Its profile, limits and job order are fixed
// at submission; job records are replaced whole on every transition.
type Session struct {
	ID        string
	Profile   codec.Profile
	Limits    validate.Limits
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	notify func(Job)
	now    func() time.Time

	mu         sync.RWMutex
	order      []string
	jobs       map[string]Job
	inputs     map[string]codec.ImageInput
	outputs    map[string][]byte
	remaining  int
	finishedAt time.Time
	done       chan struct{}
}

// Snapshot is a consistent view of a session at one instant.
type Snapshot struct {
	ID        string        `json:"id"`
	Profile   codec.Profile `json:"profile"`
	CreatedAt time.Time     `json:"createdAt"`
	Done      bool          `json:"done"`
	Jobs      []Job         `json:"jobs"`
	Stats     Stats         `json:"stats"`
}

// Jobs returns job snapshots in submission order.
func (s *Session) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobsLocked()
}

func (s *Session) jobsLocked() []Job {
	out := make([]Job, len(s.order))
	for i, id := range s.order {
		out[i] = s.jobs[id]
	}
	return out
}

// Snapshot returns the jobs and stats computed from the same view.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	jobs := s.jobsLocked()
	done := s.remaining == 0
	s.mu.RUnlock()
	return Snapshot{
		ID:        s.ID,
		Profile:   s.Profile,
		CreatedAt: s.CreatedAt,
		Done:      done,
		Jobs:      jobs,
		Stats:     Aggregate(jobs),
	}
}

// Stats aggregates the current job snapshot.
func (s *Session) Stats() Stats { return Aggregate(s.Jobs()) }

// Job returns the snapshot of one job.
func (s *Session) Job(jobID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return Job{}, errs.New(errs.CodeUnknownJobID, "unknown job %q", jobID)
	}
	return j, nil
}

// Output returns a completed job's snapshot and encoded bytes. It fails with
// NotReady while the job is unfinished, after it failed or was cancelled, and
// once its output has been released.
func (s *Session) Output(jobID string) (Job, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return Job{}, nil, errs.New(errs.CodeUnknownJobID, "unknown job %q", jobID)
	}
	if j.Status != StatusCompleted {
		return j, nil, errs.New(errs.CodeNotReady, "job %s is %s", jobID, j.Status)
	}
	data, ok := s.outputs[jobID]
	if !ok {
		return j, nil, errs.New(errs.CodeNotReady, "output of job %s was released", jobID)
	}
	return j, data, nil
}

// Release drops a completed job's output bytes. Releasing twice is a no-op.
func (s *Session) Release(jobID string) error {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return errs.New(errs.CodeUnknownJobID, "unknown job %q", jobID)
	}
	if j.Status != StatusCompleted {
		s.mu.Unlock()
		return errs.New(errs.CodeNotReady, "job %s is %s", jobID, j.Status)
	}
	if j.Released {
		s.mu.Unlock()
		return nil
	}
	delete(s.outputs, jobID)
	j.Released = true
	s.jobs[jobID] = j
	s.mu.Unlock()
	return nil
}

// Cancel moves every pending job to cancelled and returns how many it moved.
// Jobs already processing run to completion.
func (s *Session) Cancel() int {
	now := s.now()
	s.mu.Lock()
	var moved []Job
	last := false
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status != StatusPending {
			continue
		}
		j.Status = StatusCancelled
		j.FinishedAt = &now
		s.jobs[id] = j
		delete(s.inputs, id)
		last = s.terminalLocked(now)
		moved = append(moved, j)
	}
	s.mu.Unlock()

	for _, j := range moved {
		s.notify(j)
	}
	if last {
		close(s.done)
	}
	return len(moved)
}

// Done is closed once every job is terminal.
func (s *Session) Done() <-chan struct{} { return s.done }

// Finished reports whether every job is terminal.
func (s *Session) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until every job is terminal or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FinishedAt is when the last job became terminal, or zero.
func (s *Session) FinishedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finishedAt
}

// begin moves a pending job to processing and hands back its input. It
// returns false when the job is no longer pending.
func (s *Session) begin(jobID string) (Job, codec.ImageInput, bool) {
	now := s.now()
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok || !canTransition(j.Status, StatusProcessing) {
		s.mu.Unlock()
		return Job{}, codec.ImageInput{}, false
	}
	j.Status = StatusProcessing
	j.StartedAt = &now
	s.jobs[jobID] = j
	in := s.inputs[jobID]
	s.mu.Unlock()

	s.notify(j)
	return j, in, true
}

// finish records the outcome of a processing job.
func (s *Session) finish(jobID string, out *transcode.Output, err error) Job {
	now := s.now()
	s.mu.Lock()
	j := s.jobs[jobID]
	if j.Status != StatusProcessing {
		s.mu.Unlock()
		return j
	}
	if err != nil {
		j = j.failed(err, now)
	} else {
		j = j.completed(out, s.Profile.Format, now)
		s.outputs[jobID] = out.Data
	}
	s.jobs[jobID] = j
	delete(s.inputs, jobID)
	last := s.terminalLocked(now)
	s.mu.Unlock()

	s.notify(j)
	if last {
		close(s.done)
	}
	return j
}

// terminalLocked counts one job as terminal and reports whether it was the
// last. The caller closes done after publishing, so waiters see every event.
func (s *Session) terminalLocked(now time.Time) bool {
	s.remaining--
	if s.remaining == 0 {
		s.finishedAt = now
		return true
	}
	return false
}

// pending reports whether jobID still waits for a worker.
func (s *Session) pending(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[jobID].Status == StatusPending
}

// discard drops every buffered input and output.
func (s *Session) discard() {
	s.Cancel()
	s.cancel()
	s.mu.Lock()
	s.inputs = map[string]codec.ImageInput{}
	s.outputs = map[string][]byte{}
	s.mu.Unlock()
}

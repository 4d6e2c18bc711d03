package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// job is a registry entry; it is only touched with the registry lock held
type job struct {
	state      State
	result     string
	errMsg     string
	createdAt  time.Time
	finishedAt time.Time
}

// Registry tracks the jobs of one class from submission until a poller
// consumes their terminal state. All transitions happen under one mutex, so a
// poller never observes an intermediate state and consume-on-read is a single
// check-and-remove.
type Registry struct {
	class      Class
	maxPending int
	now        func() time.Time

	mu         sync.Mutex
	jobs       map[uuid.UUID]*job
	processing int
}

// NewRegistry creates a registry for class. maxPending caps the number of jobs
// still processing; zero or negative means unlimited. Finished jobs waiting
// for a poller do not count toward the cap.
func NewRegistry(class Class, maxPending int) *Registry {
	return &Registry{
		class:      class,
		maxPending: maxPending,
		now:        time.Now,
		jobs:       make(map[uuid.UUID]*job),
	}
}

// Class returns the job class this registry serves.
func (r *Registry) Class() Class {
	return r.class
}

// Submit allocates a fresh job id in the processing state.
func (r *Registry) Submit() (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxPending > 0 && r.processing >= r.maxPending {
		return uuid.Nil, fmt.Errorf("%w: %d %s jobs processing", ErrRegistryFull, r.processing, r.class)
	}

	id := uuid.New()
	for r.jobs[id] != nil {
		id = uuid.New()
	}

	r.jobs[id] = &job{state: StateProcessing, createdAt: r.now()}
	r.processing++
	return id, nil
}

// Complete moves a processing job to done with result.
func (r *Registry) Complete(id uuid.UUID, result string) error {
	return r.finish(id, StateDone, result, "")
}

// Fail moves a processing job to failed with a human-readable message.
func (r *Registry) Fail(id uuid.UUID, message string) error {
	return r.finish(id, StateFailed, "", message)
}

func (r *Registry) finish(id uuid.UUID, state State, result, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if j.state != StateProcessing {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, j.state)
	}

	r.processing--
	j.state = state
	j.result = result
	j.errMsg = message
	j.finishedAt = r.now()
	return nil
}

// Poll reports the job's state. A terminal state is removed from the registry
// as part of the same locked step, so it is delivered to exactly one poller.
// Unknown and already consumed ids both report StateNotFound.
func (r *Registry) Poll(id uuid.UUID) PollResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := PollResult{ID: id, Class: r.class}
	j, ok := r.jobs[id]
	if !ok {
		res.State = StateNotFound
		return res
	}

	res.State = j.state
	if j.state.IsTerminal() {
		res.Result = j.result
		res.Error = j.errMsg
		delete(r.jobs, id)
	}
	return res
}

// Discard removes a job regardless of its state. It is used when a job was
// registered but could not be dispatched.
func (r *Registry) Discard(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	if j.state == StateProcessing {
		r.processing--
	}
	delete(r.jobs, id)
	return true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Processing returns the number of jobs that have not finished yet.
func (r *Registry) Processing() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processing
}

// SweepOrphans drops terminal entries that finished more than ttl ago and were
// never polled. Processing entries are never touched.
func (r *Registry) SweepOrphans(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	removed := 0
	for id, j := range r.jobs {
		if j.state.IsTerminal() && j.finishedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

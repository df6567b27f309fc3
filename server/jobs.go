package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/optimode/verifykit/types"
)

// JobStatus is the lifecycle state of a verification job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Event is one message on a job's progress stream.
type Event struct {
	Type       string            `json:"type"` // progress | stats | done | failed
	Completed  int               `json:"completed,omitempty"`
	Total      int               `json:"total,omitempty"`
	Verdict    *types.Verdict    `json:"verdict,omitempty"`
	Statistics *types.Statistics `json:"statistics,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Job is one in-flight or finished batch verification. Jobs live in memory
// only and disappear with the process; nothing is persisted.
type Job struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	status     JobStatus
	total      int
	completed  int
	err        string
	results    []types.Verdict
	statistics *types.Statistics
	log        []string
	subs       map[chan Event]struct{}
}

// JobView is the lock-free snapshot of a job served over HTTP.
type JobView struct {
	ID         string            `json:"id"`
	Status     JobStatus         `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	Error      string            `json:"error,omitempty"`
	Log        []string          `json:"log"`
	Statistics *types.Statistics `json:"statistics,omitempty"`
	Results    []types.Verdict   `json:"results,omitempty"`
}

func newJob(total int) *Job {
	return &Job{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		status:    JobRunning,
		total:     total,
		subs:      make(map[chan Event]struct{}),
	}
}

// View snapshots the job. Results are included only once the job is done.
func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()

	view := JobView{
		ID:         j.ID,
		Status:     j.status,
		CreatedAt:  j.CreatedAt,
		Total:      j.total,
		Completed:  j.completed,
		Error:      j.err,
		Log:        append([]string(nil), j.log...),
		Statistics: j.statistics,
	}
	if j.status == JobCompleted {
		view.Results = j.results
	}
	return view
}

// Subscribe registers a progress listener. The returned cancel function
// must be called when the listener goes away.
func (j *Job) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	j.mu.Lock()
	j.subs[ch] = struct{}{}
	j.mu.Unlock()

	cancel := func() {
		j.mu.Lock()
		delete(j.subs, ch)
		j.mu.Unlock()
	}
	return ch, cancel
}

// publish fans the event out to all subscribers. A slow subscriber with a
// full buffer loses events rather than stalling the pipeline.
func (j *Job) publish(ev Event) {
	for ch := range j.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (j *Job) progress(completed, total int, v types.Verdict) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completed = completed
	j.publish(Event{Type: "progress", Completed: completed, Total: total, Verdict: &v})
}

func (j *Job) stats(s types.Statistics) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statistics = &s
	j.log = append(j.log, fmt.Sprintf("verified %d/%d, %d valid so far",
		j.completed, j.total, s.Valid))
	j.publish(Event{Type: "stats", Completed: j.completed, Total: j.total, Statistics: &s})
}

func (j *Job) complete(results []types.Verdict, s types.Statistics) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobCompleted
	j.results = results
	j.statistics = &s
	j.log = append(j.log, fmt.Sprintf("done: %d addresses, %d valid, %d invalid",
		s.Total, s.Valid, s.Invalid))
	j.publish(Event{Type: "done", Completed: j.completed, Total: j.total, Statistics: &s})
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobFailed
	j.err = err.Error()
	j.log = append(j.log, "failed: "+err.Error())
	j.publish(Event{Type: "failed", Error: err.Error()})
}

// jobStore is the in-memory job registry.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*Job)}
}

func (s *jobStore) create(total int) *Job {
	j := newJob(total)
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	return j
}

func (s *jobStore) get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

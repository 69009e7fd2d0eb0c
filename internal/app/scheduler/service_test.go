package scheduler

import (
	"sort"
	"sync"
	"testing"
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/test/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeQueue struct {
	mu           sync.Mutex
	jobs         []*persistence.Job
	dequeueErrs  int
	completeErrs int
	failErrs     int
	completed    []string
	failed       map[string]string
	finished     chan string
}

func newFakeQueue(jobs ...*persistence.Job) *fakeQueue {
	return &fakeQueue{jobs: jobs, failed: make(map[string]string),
		finished: make(chan string, 20)}
}

func (f *fakeQueue) DequeueNext() (*persistence.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dequeueErrs > 0 {
		f.dequeueErrs--
		return nil, errors.New("store down")
	}
	if len(f.jobs) == 0 {
		return nil, nil
	}
	sort.SliceStable(f.jobs, func(i, j int) bool {
		if f.jobs[i].Priority != f.jobs[j].Priority {
			return f.jobs[i].Priority > f.jobs[j].Priority
		}
		return f.jobs[i].QueuedAt.Before(f.jobs[j].QueuedAt)
	})
	res := f.jobs[0]
	f.jobs = f.jobs[1:]
	return res, nil
}

func (f *fakeQueue) Complete(ID string) error {
	f.mu.Lock()
	if f.completeErrs > 0 {
		f.completeErrs--
		f.mu.Unlock()
		return errors.New("store down at commit")
	}
	f.completed = append(f.completed, ID)
	f.mu.Unlock()
	f.finished <- ID
	return nil
}

func (f *fakeQueue) Fail(ID string, errMsg string) error {
	f.mu.Lock()
	if f.failErrs > 0 {
		f.failErrs--
		f.mu.Unlock()
		return errors.New("store down at commit")
	}
	f.failed[ID] = errMsg
	f.mu.Unlock()
	f.finished <- ID
	return nil
}

type fakeProcessor struct {
	mu         sync.Mutex
	processed  []string
	failFor    map[string]error
	running    int
	maxRunning int
}

func (f *fakeProcessor) Process(job *persistence.Job) error {
	f.mu.Lock()
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	f.processed = append(f.processed, job.ID)
	err := f.failFor[job.ID]
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	f.mu.Lock()
	f.running--
	f.mu.Unlock()
	return err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []struct{ id, queue string }
	err  error
}

func (f *fakeSender) Send(message *messages.QueueMessage, queue string, replyQueue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, struct{ id, queue string }{message.ID, queue})
	return f.err
}

func (f *fakeSender) queuesFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []string
	for _, s := range f.sent {
		if s.id == id {
			res = append(res, s.queue)
		}
	}
	return res
}

func job(id string, priority int, queuedAt time.Time) *persistence.Job {
	return &persistence.Job{ID: id, Priority: priority, QueuedAt: queuedAt}
}

func startTestWorker(t *testing.T, q *fakeQueue, p *fakeProcessor, s *fakeSender) *ServiceData {
	t.Helper()
	if p.failFor == nil {
		p.failFor = make(map[string]error)
	}
	data := &ServiceData{Queue: q, Processor: p, MessageSender: s,
		PollInterval: 2 * time.Millisecond, StoreRetryDelay: 2 * time.Millisecond}
	assert.Nil(t, StartWorkerService(data))
	t.Cleanup(data.Stop)
	return data
}

func waitFinished(t *testing.T, q *fakeQueue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-q.finished:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for job %d/%d", i+1, n)
		}
	}
}

func TestStartWorkerService_Fails(t *testing.T) {
	assert.NotNil(t, StartWorkerService(&ServiceData{}))
	assert.NotNil(t, StartWorkerService(&ServiceData{Queue: newFakeQueue()}))
	assert.NotNil(t, StartWorkerService(&ServiceData{Queue: newFakeQueue(),
		Processor: &fakeProcessor{}}))
}

func TestWorker_ProcessesByPriorityThenFIFO(t *testing.T) {
	now := time.Now()
	q := newFakeQueue(
		job("low", 0, now),
		job("old-high", 5, now.Add(-time.Hour)),
		job("new-high", 5, now),
	)
	p := &fakeProcessor{}
	startTestWorker(t, q, p, &fakeSender{})
	waitFinished(t, q, 3)
	assert.Equal(t, []string{"old-high", "new-high", "low"}, p.processed)
	assert.Equal(t, []string{"old-high", "new-high", "low"}, q.completed)
}

func TestWorker_SingleJobAtATime(t *testing.T) {
	now := time.Now()
	q := newFakeQueue(job("a", 0, now), job("b", 0, now), job("c", 0, now))
	p := &fakeProcessor{}
	startTestWorker(t, q, p, &fakeSender{})
	waitFinished(t, q, 3)
	assert.Equal(t, 1, p.maxRunning)
}

func TestWorker_FailureDoesNotStopLoop(t *testing.T) {
	now := time.Now()
	q := newFakeQueue(job("bad", 5, now), job("good", 0, now))
	p := &fakeProcessor{failFor: map[string]error{"bad": errors.New("olia failed")}}
	s := &fakeSender{}
	startTestWorker(t, q, p, s)
	waitFinished(t, q, 2)
	assert.Equal(t, []string{"good"}, q.completed)
	assert.Contains(t, q.failed["bad"], "olia failed")
	assert.Equal(t, []string{messages.JobStatusChange}, s.queuesFor("bad"))
	assert.Equal(t, []string{messages.JobStatusChange, messages.JobCompleted}, s.queuesFor("good"))
}

func TestWorker_SurvivesStoreOutage(t *testing.T) {
	q := newFakeQueue(job("a", 0, time.Now()))
	q.dequeueErrs = 3
	p := &fakeProcessor{}
	startTestWorker(t, q, p, &fakeSender{})
	waitFinished(t, q, 1)
	assert.Equal(t, []string{"a"}, q.completed)
}

func TestWorker_RetriesCompleteCommit(t *testing.T) {
	now := time.Now()
	q := newFakeQueue(job("a", 0, now), job("b", 0, now))
	q.completeErrs = 2
	p := &fakeProcessor{}
	s := &fakeSender{}
	startTestWorker(t, q, p, s)
	waitFinished(t, q, 2)
	// job a leaves the processing state despite the outage, before b is taken
	assert.Equal(t, []string{"a", "b"}, q.completed)
	assert.Equal(t, []string{"a", "b"}, p.processed)
	assert.Equal(t, []string{messages.JobStatusChange, messages.JobCompleted}, s.queuesFor("a"))
}

func TestWorker_RetriesFailCommit(t *testing.T) {
	q := newFakeQueue(job("bad", 0, time.Now()))
	q.failErrs = 2
	p := &fakeProcessor{failFor: map[string]error{"bad": errors.New("olia failed")}}
	s := &fakeSender{}
	startTestWorker(t, q, p, s)
	waitFinished(t, q, 1)
	assert.Contains(t, q.failed["bad"], "olia failed")
	assert.Equal(t, []string{messages.JobStatusChange}, s.queuesFor("bad"))
}

func TestWorker_PublishFailureKeepsCompleted(t *testing.T) {
	q := newFakeQueue(job("a", 0, time.Now()))
	p := &fakeProcessor{failFor: make(map[string]error)}
	s := &mocks.Sender{}
	s.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	data := &ServiceData{Queue: q, Processor: p, MessageSender: s,
		PollInterval: 2 * time.Millisecond, StoreRetryDelay: 2 * time.Millisecond}
	assert.Nil(t, StartWorkerService(data))
	t.Cleanup(data.Stop)
	waitFinished(t, q, 1)
	assert.Equal(t, []string{"a"}, q.completed)
}

func TestWorker_Stop(t *testing.T) {
	q := newFakeQueue()
	p := &fakeProcessor{failFor: make(map[string]error)}
	data := &ServiceData{Queue: q, Processor: p, MessageSender: &fakeSender{},
		PollInterval: 2 * time.Millisecond, StoreRetryDelay: 2 * time.Millisecond}
	assert.Nil(t, StartWorkerService(data))
	data.Stop()
	// worker is down, a late job stays untouched
	q.mu.Lock()
	q.jobs = append(q.jobs, job("late", 0, time.Now()))
	q.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, len(q.completed))
}

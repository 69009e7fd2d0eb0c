package meeting

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/status"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeEnqueuer struct {
	job *persistence.Job
	err error
}

func (f *fakeEnqueuer) Enqueue(job *persistence.Job) (*persistence.Job, error) {
	f.job = job
	return job, f.err
}

type fakeLoader struct {
	job     *persistence.Job
	loadErr error
	pos     int
	posErr  error
}

func (f *fakeLoader) Load(ID string) (*persistence.Job, error) {
	return f.job, f.loadErr
}

func (f *fakeLoader) Position(job *persistence.Job) (int, error) {
	return f.pos, f.posErr
}

type fakeResults struct {
	turns []persistence.Turn
	err   error
}

func (f *fakeResults) Get(ID string) ([]persistence.Turn, error) {
	return f.turns, f.err
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(message *messages.QueueMessage, queue string, replyQueue string) error {
	f.sent = append(f.sent, queue)
	return f.err
}

func newTestData(t *testing.T) *ServiceData {
	t.Helper()
	data := &ServiceData{
		Enqueuer:       &fakeEnqueuer{},
		Jobs:           &fakeLoader{},
		Results:        &fakeResults{},
		MessageSender:  &fakeSender{},
		AvgJobDuration: 20 * time.Minute,
	}
	assert.Nil(t, initMetrics(data))
	data.health = healthcheck.NewHandler()
	return data
}

func TestWrongPath(t *testing.T) {
	req := httptest.NewRequest("GET", "/invalid", nil)
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestSubmit(t *testing.T) {
	data := newTestData(t)
	req := httptest.NewRequest("POST", "/meetings",
		strings.NewReader(`{"sourceUrl": "http://olia.lt/r.mp4", "title": "Summit", "priority": 2}`))
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Body.String(), `{"id":"`))
	job := data.Enqueuer.(*fakeEnqueuer).job
	assert.Equal(t, "http://olia.lt/r.mp4", job.SourceURL)
	assert.Equal(t, "Summit", job.Title)
	assert.Equal(t, 2, job.Priority)
	assert.Equal(t, []string{messages.JobStatusChange}, data.MessageSender.(*fakeSender).sent)
}

func TestSubmit_NoSource(t *testing.T) {
	req := httptest.NewRequest("POST", "/meetings", strings.NewReader(`{"title": "olia"}`))
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestSubmit_WrongJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/meetings", strings.NewReader(`olia`))
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 400, resp.Code)
}

func TestSubmit_EnqueueFails(t *testing.T) {
	data := newTestData(t)
	data.Enqueuer = &fakeEnqueuer{err: errors.New("olia")}
	req := httptest.NewRequest("POST", "/meetings",
		strings.NewReader(`{"sourceUrl": "http://olia.lt/r.mp4"}`))
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 500, resp.Code)
}

func TestSubmit_SendFailureTolerated(t *testing.T) {
	data := newTestData(t)
	data.MessageSender = &fakeSender{err: errors.New("olia")}
	req := httptest.NewRequest("POST", "/meetings",
		strings.NewReader(`{"sourceUrl": "http://olia.lt/r.mp4"}`))
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
}

func TestStatus_Queued(t *testing.T) {
	data := newTestData(t)
	data.Jobs = &fakeLoader{job: &persistence.Job{ID: "j1",
		Status: status.Name(status.Queued)}, pos: 3}
	req := httptest.NewRequest("GET", "/status/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"QUEUED"`)
	assert.Contains(t, resp.Body.String(), `"position":3`)
	assert.Contains(t, resp.Body.String(), `"estimatedWaitSec":3600`)
}

func TestStatus_ProcessingNoPosition(t *testing.T) {
	data := newTestData(t)
	data.Jobs = &fakeLoader{job: &persistence.Job{ID: "j1",
		Status: status.Name(status.Processing)}, pos: 3}
	req := httptest.NewRequest("GET", "/status/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"PROCESSING"`)
	assert.NotContains(t, resp.Body.String(), "position")
}

func TestStatus_FailedKeepsError(t *testing.T) {
	data := newTestData(t)
	data.Jobs = &fakeLoader{job: &persistence.Job{ID: "j1",
		Status: status.Name(status.Failed), Error: "Can't transcribe"}}
	req := httptest.NewRequest("GET", "/status/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"error":"Can't transcribe"`)
}

func TestStatus_Unknown(t *testing.T) {
	req := httptest.NewRequest("GET", "/status/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestStatus_StoreFails(t *testing.T) {
	data := newTestData(t)
	data.Jobs = &fakeLoader{loadErr: errors.New("olia")}
	req := httptest.NewRequest("GET", "/status/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 500, resp.Code)
}

func TestResult(t *testing.T) {
	data := newTestData(t)
	data.Results = &fakeResults{turns: []persistence.Turn{
		{Speaker: "Jane Smith", Content: "olia"}}}
	req := httptest.NewRequest("GET", "/result/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"speaker":"Jane Smith"`)
}

func TestResult_NotReady(t *testing.T) {
	req := httptest.NewRequest("GET", "/result/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 404, resp.Code)
}

func TestResult_StoreFails(t *testing.T) {
	data := newTestData(t)
	data.Results = &fakeResults{err: errors.New("olia")}
	req := httptest.NewRequest("GET", "/result/j1", nil)
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, 500, resp.Code)
}

func TestLive(t *testing.T) {
	req := httptest.NewRequest("GET", "/live", nil)
	resp := httptest.NewRecorder()
	NewRouter(newTestData(t)).ServeHTTP(resp, req)
	assert.Equal(t, 200, resp.Code)
}

package notes

import (
	"encoding/json"
	"testing"

	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

type fakeTurnProvider struct {
	turns []persistence.Turn
	err   error
}

func (f *fakeTurnProvider) Get(ID string) ([]persistence.Turn, error) {
	return f.turns, f.err
}

type fakeJobProvider struct {
	job *persistence.Job
	err error
}

func (f *fakeJobProvider) Load(ID string) (*persistence.Job, error) {
	return f.job, f.err
}

type fakeSaver struct {
	notes *persistence.Notes
	err   error
}

func (f *fakeSaver) Save(notes *persistence.Notes) error {
	f.notes = notes
	return f.err
}

type fakeGenerator struct {
	notes *persistence.Notes
	err   error
	title string
}

func (f *fakeGenerator) Generate(ID, title string, turns []persistence.Turn) (*persistence.Notes, error) {
	f.title = title
	return f.notes, f.err
}

func testTurns() []persistence.Turn {
	return []persistence.Turn{{Speaker: "Jane Smith", Content: "olia"}}
}

func newTestData() *ServiceData {
	return &ServiceData{
		workCh:    make(chan amqp.Delivery),
		turns:     &fakeTurnProvider{turns: testTurns()},
		jobs:      &fakeJobProvider{job: &persistence.Job{ID: "j1", Title: "Summit"}},
		saver:     &fakeSaver{},
		generator: &fakeGenerator{notes: &persistence.Notes{ID: "j1", Summary: "s", Minutes: "m"}},
		fc:        utils.NewMultiCloseChannel(),
	}
}

func TestStartWorkerService(t *testing.T) {
	assert.Nil(t, StartWorkerService(newTestData()))
}

func TestStartWorkerService_Fails(t *testing.T) {
	check := func(alter func(d *ServiceData)) {
		d := newTestData()
		alter(d)
		assert.NotNil(t, StartWorkerService(d))
	}
	check(func(d *ServiceData) { d.turns = nil })
	check(func(d *ServiceData) { d.jobs = nil })
	check(func(d *ServiceData) { d.saver = nil })
	check(func(d *ServiceData) { d.generator = nil })
	check(func(d *ServiceData) { d.workCh = nil })
	check(func(d *ServiceData) { d.fc = nil })
}

func msgDelivery(t *testing.T, id string) *amqp.Delivery {
	t.Helper()
	b, err := json.Marshal(messages.NewQueueMessage(id))
	assert.Nil(t, err)
	return &amqp.Delivery{Body: b}
}

func TestProcessMsg(t *testing.T) {
	data := newTestData()
	redeliver, err := processMsg(msgDelivery(t, "j1"), data)
	assert.Nil(t, err)
	assert.True(t, redeliver)
	saver := data.saver.(*fakeSaver)
	assert.Equal(t, "s", saver.notes.Summary)
	assert.Equal(t, "m", saver.notes.Minutes)
	assert.Equal(t, "Summit", data.generator.(*fakeGenerator).title)
}

func TestProcessMsg_WrongMsg(t *testing.T) {
	redeliver, err := processMsg(&amqp.Delivery{Body: []byte("olia")}, newTestData())
	assert.NotNil(t, err)
	assert.False(t, redeliver)
}

func TestWork_NoTurns(t *testing.T) {
	data := newTestData()
	data.turns = &fakeTurnProvider{}
	assert.NotNil(t, work(data, messages.NewQueueMessage("j1")))
}

func TestWork_TurnsFail(t *testing.T) {
	data := newTestData()
	data.turns = &fakeTurnProvider{err: errors.New("olia")}
	assert.NotNil(t, work(data, messages.NewQueueMessage("j1")))
}

func TestWork_JobLoadFailureTolerated(t *testing.T) {
	data := newTestData()
	data.jobs = &fakeJobProvider{err: errors.New("olia")}
	assert.Nil(t, work(data, messages.NewQueueMessage("j1")))
	assert.Equal(t, "", data.generator.(*fakeGenerator).title)
}

func TestWork_GenerateFails(t *testing.T) {
	data := newTestData()
	data.generator = &fakeGenerator{err: errors.New("olia")}
	assert.NotNil(t, work(data, messages.NewQueueMessage("j1")))
}

func TestWork_SaveFails(t *testing.T) {
	data := newTestData()
	data.saver = &fakeSaver{err: errors.New("olia")}
	assert.NotNil(t, work(data, messages.NewQueueMessage("j1")))
}

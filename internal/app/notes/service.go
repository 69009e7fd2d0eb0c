package notes

import (
	"encoding/json"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

//TurnProvider loads the final turn list of a completed job
type TurnProvider interface {
	Get(ID string) ([]persistence.Turn, error)
}

//JobProvider loads job data
type JobProvider interface {
	Load(ID string) (*persistence.Job, error)
}

//NotesSaver persists generated documents
type NotesSaver interface {
	Save(notes *persistence.Notes) error
}

//NotesGenerator produces the documents from turns
type NotesGenerator interface {
	Generate(ID, title string, turns []persistence.Turn) (*persistence.Notes, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	workCh    <-chan amqp.Delivery
	turns     TurnProvider
	jobs      JobProvider
	saver     NotesSaver
	generator NotesGenerator

	fc *utils.MultiCloseChannel
}

//StartWorkerService starts listening for job completion events
func StartWorkerService(data *ServiceData) error {
	cmdapp.Log.Infof("Starting listen for completion messages")
	if data.turns == nil {
		return errors.New("No turn provider")
	}
	if data.jobs == nil {
		return errors.New("No job provider")
	}
	if data.saver == nil {
		return errors.New("No notes saver")
	}
	if data.generator == nil {
		return errors.New("No generator")
	}
	if data.workCh == nil {
		return errors.New("No work channel")
	}
	if data.fc == nil {
		return errors.New("No close channel")
	}

	go listenQueue(data)
	return nil
}

func listenQueue(data *ServiceData) {
	for d := range data.workCh {
		redeliver, err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Error("Message error. ", err)
			d.Nack(false, redeliver && !d.Redelivered) // try redeliver for the first time
			continue
		}
		d.Ack(false)
	}
	cmdapp.Log.Infof("Stopped listening queue")
	data.fc.Close()
}

//processMsg returns true if it needs to retry on error again
func processMsg(d *amqp.Delivery, data *ServiceData) (bool, error) {
	var message messages.QueueMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return false, errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	return true, work(data, &message)
}

// work generates and stores the documents for one completed job.
// The job record is read only here - a failure never touches its state
func work(data *ServiceData, message *messages.QueueMessage) error {
	cmdapp.Log.Infof("Got completion event for ID: %s", message.ID)

	turns, err := data.turns.Get(message.ID)
	if err != nil {
		return errors.Wrap(err, "Can't load turns")
	}
	if len(turns) == 0 {
		return errors.Errorf("No turns for ID: %s", message.ID)
	}
	title := ""
	job, err := data.jobs.Load(message.ID)
	if err != nil {
		cmdapp.Log.Warnf("Can't load job %s: %s", message.ID, err.Error())
	} else if job != nil {
		title = job.Title
	}
	notes, err := data.generator.Generate(message.ID, title, turns)
	if err != nil {
		return errors.Wrap(err, "Can't generate notes")
	}
	if err := data.saver.Save(notes); err != nil {
		return errors.Wrap(err, "Can't save notes")
	}
	cmdapp.Log.Infof("Notes ready for ID: %s", message.ID)
	return nil
}

package scheduler

import (
	"fmt"
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
)

//JobQueue provides atomic job state transitions
type JobQueue interface {
	DequeueNext() (*persistence.Job, error)
	Complete(ID string) error
	Fail(ID string, errMsg string) error
}

//Processor runs the pipeline for one job
type Processor interface {
	Process(job *persistence.Job) error
}

//ServiceData keeps data required for the worker
type ServiceData struct {
	Queue         JobQueue
	Processor     Processor
	MessageSender messages.Sender

	PollInterval    time.Duration
	StoreRetryDelay time.Duration

	quit chan struct{}
	done chan struct{}
}

const maxStoreRetryDelay = time.Minute

//StartWorkerService starts the single job processing worker
func StartWorkerService(data *ServiceData) error {
	if data.Queue == nil {
		return errors.New("No job queue")
	}
	if data.Processor == nil {
		return errors.New("No processor")
	}
	if data.MessageSender == nil {
		return errors.New("No message sender")
	}
	if data.PollInterval <= 0 {
		data.PollInterval = 3 * time.Second
	}
	if data.StoreRetryDelay <= 0 {
		data.StoreRetryDelay = 5 * time.Second
	}
	data.quit = make(chan struct{})
	data.done = make(chan struct{})
	cmdapp.Log.Infof("Starting scheduler worker, poll interval %v", data.PollInterval)
	go data.work()
	return nil
}

//Stop signals the worker to exit and waits for the current job to finish
func (data *ServiceData) Stop() {
	close(data.quit)
	<-data.done
}

// work is the single worker loop. One job is processed at a time,
// a failed job or a store outage never stops the loop
func (data *ServiceData) work() {
	defer close(data.done)
	storeDelay := data.StoreRetryDelay
	for {
		select {
		case <-data.quit:
			cmdapp.Log.Infof("Scheduler worker stopped")
			return
		default:
		}
		job, err := data.Queue.DequeueNext()
		if err != nil {
			cmdapp.Log.Errorf("Can't dequeue job: %s. Retrying in %v", err.Error(), storeDelay)
			if !data.sleep(storeDelay) {
				continue
			}
			storeDelay *= 2
			if storeDelay > maxStoreRetryDelay {
				storeDelay = maxStoreRetryDelay
			}
			continue
		}
		storeDelay = data.StoreRetryDelay
		if job == nil {
			data.sleep(data.PollInterval)
			continue
		}
		data.processJob(job)
	}
}

func (data *ServiceData) processJob(job *persistence.Job) {
	err := data.Processor.Process(job)
	if err != nil {
		// full cause chain goes on the job record for diagnostics
		errMsg := fmt.Sprintf("%+v", err)
		cmdapp.Log.Errorf("Job %s failed: %s", job.ID, err.Error())
		if !data.commit(func() error { return data.Queue.Fail(job.ID, errMsg) }, job.ID, "failed") {
			return
		}
		data.sendMessage(messages.NewQueueMsgWithError(job.ID, err.Error()), messages.JobStatusChange)
		return
	}
	if !data.commit(func() error { return data.Queue.Complete(job.ID) }, job.ID, "completed") {
		return
	}
	// completed state stays even if publishing fails
	data.sendMessage(messages.NewQueueMessage(job.ID), messages.JobStatusChange)
	data.sendMessage(messages.NewQueueMessage(job.ID), messages.JobCompleted)
}

// commit retries a terminal state transition until the store takes it,
// a job may not stay processing because of a store outage.
// Gives up only on worker shutdown
func (data *ServiceData) commit(op func() error, id, state string) bool {
	delay := data.StoreRetryDelay
	for {
		err := op()
		if err == nil {
			return true
		}
		cmdapp.Log.Errorf("Can't mark job %s %s: %s. Retrying in %v", id, state, err.Error(), delay)
		if !data.sleep(delay) {
			return false
		}
		delay *= 2
		if delay > maxStoreRetryDelay {
			delay = maxStoreRetryDelay
		}
	}
}

func (data *ServiceData) sendMessage(msg *messages.QueueMessage, queue string) {
	if err := data.MessageSender.Send(msg, queue, ""); err != nil {
		cmdapp.Log.Errorf("Can't send %s message for %s: %s", queue, msg.ID, err.Error())
	}
}

// sleep waits for d unless a quit arrives first
func (data *ServiceData) sleep(d time.Duration) bool {
	select {
	case <-data.quit:
		return false
	case <-time.After(d):
		return true
	}
}

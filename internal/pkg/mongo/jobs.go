package mongo

import (
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobStore keeps processing jobs in mongo db.
// State transitions are done with conditional updates, so a job
// can't leave the processing state twice or be dequeued by two workers
type JobStore struct {
	SessionProvider *SessionProvider
}

//NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	return &JobStore{SessionProvider: sessionProvider}, nil
}

// Enqueue inserts the job in queued state.
// Idempotent - re-enqueuing an existing job returns the stored entry unchanged
func (ss *JobStore) Enqueue(job *persistence.Job) (*persistence.Job, error) {
	cmdapp.Log.Infof("Enqueue job %s, priority %d", job.ID, job.Priority)

	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	res := c.FindOneAndUpdate(ctx, bson.M{"ID": sanitize(job.ID)},
		bson.M{"$setOnInsert": bson.M{"ID": job.ID, "title": job.Title, "sourceURL": job.SourceURL,
			"priority": job.Priority, "status": status.Name(status.Queued), "queuedAt": time.Now()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))
	var result persistence.Job
	err = res.Decode(&result)
	if err != nil {
		return nil, errors.Wrap(err, "Can't enqueue job")
	}
	return &result, nil
}

// DequeueNext atomically takes the queued job with the highest priority,
// ties broken by the earliest enqueue time, and marks it processing.
// Returns nil job when the queue is empty
func (ss *JobStore) DequeueNext() (*persistence.Job, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	now := time.Now()
	res := c.FindOneAndUpdate(ctx, bson.M{"status": status.Name(status.Queued)},
		bson.M{"$set": bson.M{"status": status.Name(status.Processing), "startedAt": now}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "queuedAt", Value: 1}}).
			SetReturnDocument(options.After))
	var result persistence.Job
	err = res.Decode(&result)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't dequeue job")
	}
	return &result, nil
}

//Complete marks a processing job completed
func (ss *JobStore) Complete(id string) error {
	return ss.finish(id, status.Completed, "")
}

//Fail marks a processing job failed keeping the error text
func (ss *JobStore) Fail(id string, errMsg string) error {
	return ss.finish(id, status.Failed, errMsg)
}

func (ss *JobStore) finish(id string, st status.Status, errMsg string) error {
	cmdapp.Log.Infof("Finish job %s: %s", id, status.Name(st))

	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	set := bson.M{"status": status.Name(st), "finishedAt": time.Now()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id), "status": status.Name(status.Processing)},
		bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "Can't update job")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("Job %s is not processing", id)
	}
	return nil
}

//SetTitle updates the title of an existing job
func (ss *JobStore) SetTitle(id string, title string) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id)},
		bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		return errors.Wrap(err, "Can't update job title")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("No job %s", id)
	}
	return nil
}

//Load returns job by ID
func (ss *JobStore) Load(id string) (*persistence.Job, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var result persistence.Job
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&result)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't get job record")
	}
	return &result, nil
}

// Position returns the count of other queued jobs that will be
// dequeued before the given queued job
func (ss *JobStore) Position(job *persistence.Job) (int, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return 0, err
	}
	defer cancel()

	count, err := c.CountDocuments(ctx, bson.M{"status": status.Name(status.Queued),
		"$or": bson.A{
			bson.M{"priority": bson.M{"$gt": job.Priority}},
			bson.M{"priority": job.Priority, "queuedAt": bson.M{"$lt": job.QueuedAt}},
		}})
	if err != nil {
		return 0, errors.Wrap(err, "Can't count queued jobs")
	}
	return int(count), nil
}

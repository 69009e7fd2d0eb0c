package mongo

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//SegmentStore keeps final speaker attributed transcript turns
type SegmentStore struct {
	SessionProvider *SessionProvider
}

//NewSegmentStore creates SegmentStore instance
func NewSegmentStore(sessionProvider *SessionProvider) (*SegmentStore, error) {
	return &SegmentStore{SessionProvider: sessionProvider}, nil
}

//Save stores the whole turn list for the job
func (ss *SegmentStore) Save(id string, turns []persistence.Turn) error {
	cmdapp.Log.Infof("Saving %d turn(s) for %s", len(turns), id)

	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)},
		bson.M{"$set": bson.M{"turns": turns}},
		options.Update().SetUpsert(true))
	return errors.Wrap(err, "Can't save turns")
}

//Get returns stored turns by job ID
func (ss *SegmentStore) Get(id string) ([]persistence.Turn, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var m struct {
		Turns []persistence.Turn `bson:"turns"`
	}
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&m)
	if err == mgo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't get turns")
	}
	return m.Turns, nil
}

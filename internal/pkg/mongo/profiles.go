package mongo

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//ProfileStore keeps extracted speaker rosters
type ProfileStore struct {
	SessionProvider *SessionProvider
}

//NewProfileStore creates ProfileStore instance
func NewProfileStore(sessionProvider *SessionProvider) (*ProfileStore, error) {
	return &ProfileStore{SessionProvider: sessionProvider}, nil
}

//Save stores the roster built for the job
func (ss *ProfileStore) Save(id string, profiles []persistence.SpeakerProfile) error {
	cmdapp.Log.Infof("Saving %d speaker profile(s) for %s", len(profiles), id)

	c, ctx, cancel, err := newColl(ss.SessionProvider, profileTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)},
		bson.M{"$set": bson.M{"speakers": profiles}},
		options.Update().SetUpsert(true))
	return errors.Wrap(err, "Can't save profiles")
}

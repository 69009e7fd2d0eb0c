package mongo

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

//NotesStore keeps generated post pipeline documents
type NotesStore struct {
	SessionProvider *SessionProvider
}

//NewNotesStore creates NotesStore instance
func NewNotesStore(sessionProvider *SessionProvider) (*NotesStore, error) {
	return &NotesStore{SessionProvider: sessionProvider}, nil
}

//Save stores generated documents for the job
func (ss *NotesStore) Save(notes *persistence.Notes) error {
	cmdapp.Log.Infof("Saving notes for %s", notes.ID)

	c, ctx, cancel, err := newColl(ss.SessionProvider, notesTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(notes.ID)},
		bson.M{"$set": bson.M{"summary": notes.Summary, "minutes": notes.Minutes}},
		options.Update().SetUpsert(true))
	return errors.Wrap(err, "Can't save notes")
}

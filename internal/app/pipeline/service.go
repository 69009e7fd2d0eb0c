package pipeline

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/downloader"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/pkg/errors"
)

//Downloader fetches meeting media and returns an audio reference
type Downloader interface {
	Download(sourceRef string) (string, *downloader.Metadata, error)
}

//Transcriber turns an audio reference into time-coded cues
type Transcriber interface {
	Transcribe(audioID string) ([]persistence.Cue, error)
}

//TurnSaver persists assembled speaker turns
type TurnSaver interface {
	Save(ID string, turns []persistence.Turn) error
}

//ProfileSaver persists the extracted speaker roster
type ProfileSaver interface {
	Save(ID string, profiles []persistence.SpeakerProfile) error
}

//TitleSaver persists a title taken from the downloaded media metadata
type TitleSaver interface {
	SetTitle(ID string, title string) error
}

//ServiceData keeps the processing pipeline dependencies
type ServiceData struct {
	Downloader   Downloader
	Transcriber  Transcriber
	Extractor    *ProfileExtractor
	Diarizer     *Diarizer
	BatchOpts    BatchOptions
	TurnSaver    TurnSaver
	ProfileSaver ProfileSaver
	TitleSaver   TitleSaver
}

func checkInputs(data *ServiceData) error {
	if data.Downloader == nil {
		return errors.New("No downloader")
	}
	if data.Transcriber == nil {
		return errors.New("No transcriber")
	}
	if data.Extractor == nil {
		return errors.New("No profile extractor")
	}
	if data.Diarizer == nil {
		return errors.New("No diarizer")
	}
	if data.TurnSaver == nil {
		return errors.New("No turn saver")
	}
	if data.ProfileSaver == nil {
		return errors.New("No profile saver")
	}
	if data.TitleSaver == nil {
		return errors.New("No title saver")
	}
	if data.BatchOpts.Size < 2 {
		return errors.New("Wrong batch options")
	}
	return nil
}

//NewServiceData validates dependencies and returns the pipeline
func NewServiceData(data *ServiceData) (*ServiceData, error) {
	if err := checkInputs(data); err != nil {
		return nil, err
	}
	return data, nil
}

//Process runs the full pipeline for one job: download, transcribe,
//split, extract roster, diarize, assemble and persist.
//A roster extraction failure degrades the result, it does not fail the job
func (data *ServiceData) Process(job *persistence.Job) error {
	cmdapp.Log.Infof("Processing job %s", job.ID)
	audioID, meta, err := data.Downloader.Download(job.SourceURL)
	if err != nil {
		return errors.Wrap(err, "Can't download media")
	}
	if job.Title == "" && meta != nil && meta.Title != "" {
		// consumers reload the job from the store, the title must land there too
		job.Title = meta.Title
		if err := data.TitleSaver.SetTitle(job.ID, job.Title); err != nil {
			return errors.Wrap(err, "Can't save title")
		}
	}
	cues, err := data.Transcriber.Transcribe(audioID)
	if err != nil {
		return errors.Wrap(err, "Can't transcribe")
	}
	if len(cues) == 0 {
		return errors.New("Empty transcript")
	}
	batches := SplitBatches(cues, data.BatchOpts)
	roster, err := data.Extractor.Extract(job.Title, cues)
	if err != nil {
		cmdapp.Log.Warnf("Proceeding without speaker roster: %s", err.Error())
		roster = nil
	}
	labeled := data.Diarizer.Label(job.Title, roster, batches)
	turns := AssembleTurns(labeled)
	if len(roster) > 0 {
		if err := data.ProfileSaver.Save(job.ID, roster); err != nil {
			return errors.Wrap(err, "Can't save profiles")
		}
	}
	if err := data.TurnSaver.Save(job.ID, turns); err != nil {
		return errors.Wrap(err, "Can't save turns")
	}
	cmdapp.Log.Infof("Processed job %s: %d cue(s), %d turn(s), %d speaker(s)",
		job.ID, len(cues), len(turns), len(roster))
	return nil
}

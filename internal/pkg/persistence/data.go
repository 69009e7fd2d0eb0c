package persistence

import "time"

type (
	//Job is one meeting processing request
	Job struct {
		ID         string     `bson:"ID"`
		Title      string     `bson:"title,omitempty"`
		SourceURL  string     `bson:"sourceURL,omitempty"`
		Priority   int        `bson:"priority"`
		Status     string     `bson:"status"`
		Error      string     `bson:"error,omitempty"`
		QueuedAt   time.Time  `bson:"queuedAt"`
		StartedAt  *time.Time `bson:"startedAt,omitempty"`
		FinishedAt *time.Time `bson:"finishedAt,omitempty"`
	}

	//Cue is one time-coded fragment of recognized speech
	Cue struct {
		Index   int     `json:"index"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
		Text    string  `json:"text"`
	}

	//SpeakerProfile is a deduplicated speaker identity built from the transcript
	SpeakerProfile struct {
		Name         string   `bson:"name" json:"name"`
		Title        string   `bson:"title,omitempty" json:"title,omitempty"`
		Organization string   `bson:"organization,omitempty" json:"organization,omitempty"`
		Country      string   `bson:"country,omitempty" json:"country,omitempty"`
		Category     string   `bson:"category,omitempty" json:"category,omitempty"`
		Confidence   float64  `bson:"confidence,omitempty" json:"confidence,omitempty"`
		Variants     []string `bson:"variants,omitempty" json:"variants,omitempty"`
	}

	//Turn is one speaker turn - consecutive same speaker cues merged
	Turn struct {
		Speaker      string  `bson:"speaker" json:"speaker"`
		Representing string  `bson:"representing" json:"representing"`
		Content      string  `bson:"content" json:"content"`
		StartTime    float64 `bson:"startTime" json:"startTime"`
		EndTime      float64 `bson:"endTime" json:"endTime"`
		CueCount     int     `bson:"cueCount" json:"cueCount"`
	}

	//Notes keeps generated post pipeline documents
	Notes struct {
		ID      string `bson:"ID"`
		Summary string `bson:"summary,omitempty"`
		Minutes string `bson:"minutes,omitempty"`
	}
)

package transcriber

import (
	"encoding/json"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/pkg/errors"

	"github.com/hashicorp/go-retryablehttp"
)

//Client communicates with the speech to text service
type Client struct {
	httpclient    *retryablehttp.Client
	transcribeURL string
	model         string
}

//NewClient creates a transcriber client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.transcribeURL, err = utils.GetURLFromConfig("transcriber.url")
	if err != nil {
		return nil, err
	}
	res.model = cmdapp.Config.GetString("transcriber.model")
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = 3
	res.httpclient.Logger = nil
	return &res, nil
}

type transcribeRequest struct {
	AudioID string `json:"audioID"`
	Model   string `json:"model,omitempty"`
}

type transcribeResponse struct {
	Cues  []persistence.Cue `json:"cues"`
	Error string            `json:"error"`
}

//Transcribe returns time coded cues for the stored audio.
//Cues are strictly chronological with unique increasing indices
func (sp *Client) Transcribe(audioID string) ([]persistence.Cue, error) {
	cmdapp.Log.Infof("Transcribing audio %s", audioID)

	b, err := json.Marshal(transcribeRequest{AudioID: audioID, Model: sp.model})
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal request")
	}
	req, err := retryablehttp.NewRequest("POST", sp.transcribeURL, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Can't call transcriber")
	}
	defer resp.Body.Close()
	err = utils.ValidateResponse(resp)
	if err != nil {
		return nil, errors.Wrap(err, "Can't transcribe")
	}
	var respData transcribeResponse
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	if respData.Error != "" {
		return nil, errors.Errorf("Transcriber error: %s", respData.Error)
	}
	err = validateCues(respData.Cues)
	if err != nil {
		return nil, err
	}
	return respData.Cues, nil
}

func validateCues(cues []persistence.Cue) error {
	if len(cues) == 0 {
		return errors.New("Empty transcription")
	}
	for i, c := range cues {
		if i > 0 && cues[i-1].Index >= c.Index {
			return errors.Errorf("Cue indices not increasing at %d", i)
		}
		if i > 0 && cues[i-1].Start > c.Start {
			return errors.Errorf("Cues not chronological at index %d", c.Index)
		}
		if c.End < c.Start {
			return errors.Errorf("Cue %d ends before it starts", c.Index)
		}
	}
	return nil
}

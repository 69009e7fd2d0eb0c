package downloader

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/pkg/errors"

	"github.com/hashicorp/go-retryablehttp"
)

//Distinct failure kinds the pipeline branches on
var (
	//ErrUnsupportedSource indicates a source link this system can't handle
	ErrUnsupportedSource = errors.New("Unsupported source")
	//ErrNotFound indicates the content behind the link is gone
	ErrNotFound = errors.New("Content not found")
)

//Metadata describes the downloaded recording
type Metadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader"`
}

//Client communicates with the audio download service
type Client struct {
	httpclient  *retryablehttp.Client
	downloadURL string
}

//NewClient creates a downloader client
func NewClient() (*Client, error) {
	res := Client{}
	var err error
	res.downloadURL, err = utils.GetURLFromConfig("downloader.url")
	if err != nil {
		return nil, err
	}
	res.httpclient = retryablehttp.NewClient()
	res.httpclient.RetryMax = 3
	res.httpclient.Logger = nil
	return &res, nil
}

type downloadRequest struct {
	Source string `json:"source"`
}

type downloadResponse struct {
	AudioID  string   `json:"audioID"`
	Metadata Metadata `json:"metadata"`
}

//Download asks the service to fetch the recording audio.
//Returns a handle to the stored audio and recording metadata
func (sp *Client) Download(sourceRef string) (string, *Metadata, error) {
	src, err := normalizeSource(sourceRef)
	if err != nil {
		return "", nil, err
	}
	cmdapp.Log.Infof("Downloading %s", utils.URLToLog(src))

	b, err := json.Marshal(downloadRequest{Source: src})
	if err != nil {
		return "", nil, errors.Wrap(err, "Can't marshal request")
	}
	req, err := retryablehttp.NewRequest("POST", sp.downloadURL, b)
	if err != nil {
		return "", nil, errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return "", nil, errors.Wrap(err, "Can't call downloader")
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return "", nil, ErrNotFound
	}
	err = utils.ValidateResponse(resp)
	if err != nil {
		return "", nil, errors.Wrap(err, "Can't download audio")
	}
	var respData downloadResponse
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return "", nil, errors.Wrap(err, "Can't decode response")
	}
	if respData.AudioID == "" {
		return "", nil, errors.New("Empty audio ID in response")
	}
	return respData.AudioID, &respData.Metadata, nil
}

var slugRegexp = regexp.MustCompile(`/asset/[^/]+/([A-Za-z0-9]+)$`)

const webtvPartnerID = "2503451"

// normalizeSource maps UN WebTV asset links to kaltura references,
// other http(s) links pass through unchanged
func normalizeSource(sourceRef string) (string, error) {
	u, err := url.Parse(sourceRef)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.Wrapf(ErrUnsupportedSource, "'%s'", sourceRef)
	}
	if strings.Contains(u.Host, "webtv.un.org") {
		m := slugRegexp.FindStringSubmatch(u.Path)
		if m == nil {
			return "", errors.Wrapf(ErrUnsupportedSource, "'%s' does not look like a Web TV asset link", sourceRef)
		}
		entryID, err := slugToEntryID(m[1])
		if err != nil {
			return "", err
		}
		return "kaltura:" + webtvPartnerID + ":" + entryID, nil
	}
	return sourceRef, nil
}

func slugToEntryID(slug string) (string, error) {
	if !strings.HasPrefix(slug, "k1") {
		return "", errors.Wrapf(ErrUnsupportedSource, "unexpected slug format '%s'", slug)
	}
	return "1_" + slug[2:], nil
}

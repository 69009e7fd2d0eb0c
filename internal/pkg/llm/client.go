package llm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/pkg/errors"

	"github.com/hashicorp/go-retryablehttp"
)

//Client comunicates with a completion service over HTTP
type Client struct {
	httpclient *retryablehttp.Client
	name       string
	url        string
	key        string
	model      string
	timeout    time.Duration
}

//NewClient creates a completion client from config section llm.<name>
func NewClient(name string) (*Client, error) {
	res := Client{name: name}
	var err error
	res.url, err = utils.GetURLFromConfig("llm." + name + ".url")
	if err != nil {
		return nil, err
	}
	res.key = cmdapp.Config.GetString("llm." + name + ".key")
	res.model = cmdapp.Config.GetString("llm." + name + ".model")
	if res.model == "" {
		return nil, errors.New("No llm." + name + ".model setting provided")
	}
	res.timeout = cmdapp.Config.GetDuration("llm." + name + ".timeout")
	if res.timeout == 0 {
		res.timeout = 2 * time.Minute
	}
	res.httpclient = retryablehttp.NewClient()
	// retries and rate limit handling are driven by the retry package
	res.httpclient.RetryMax = 0
	res.httpclient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	res.httpclient.Logger = nil
	res.httpclient.HTTPClient.Timeout = res.timeout
	return &res, nil
}

//Name returns provider name
func (sp *Client) Name() string {
	return sp.name
}

type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

type completionResponse struct {
	Text       string `json:"text"`
	UsedTokens int    `json:"usedTokens"`
	Error      string `json:"error"`
}

//Complete sends the prompt and returns the raw completion text
func (sp *Client) Complete(prompt string, maxTokens int) (*Result, error) {
	reqData := completionRequest{Model: sp.model, Prompt: prompt, MaxTokens: maxTokens}
	b, err := json.Marshal(reqData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal request")
	}
	req, err := retryablehttp.NewRequest("POST", sp.url, bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	if sp.key != "" {
		req.Header.Set("Authorization", "Bearer "+sp.key)
	}
	cmdapp.Log.Debugf("Calling %s, prompt len %d", sp.name, len(prompt))
	resp, err := sp.httpclient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't call %s", sp.name)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 429 {
		return nil, &TooManyRequestsErr{RetryAfter: retryAfterHeader(resp.Header.Get("Retry-After"))}
	}
	err = utils.ValidateResponse(resp)
	if err != nil {
		return nil, errors.Wrapf(err, "Wrong answer from %s", sp.name)
	}
	var respData completionResponse
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	if respData.Error != "" {
		return nil, errors.Errorf("Provider %s error: %s", sp.name, respData.Error)
	}
	if respData.Text == "" {
		return nil, errors.Errorf("Empty completion from %s", sp.name)
	}
	return &Result{Text: respData.Text, UsedTokens: respData.UsedTokens}, nil
}

func retryAfterHeader(value string) time.Duration {
	if value == "" {
		return 0
	}
	s, err := strconv.Atoi(value)
	if err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	t, err := time.Parse(time.RFC1123, value)
	if err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
	}
	return 0
}

package api

//SubmitRequest is the meeting processing request body
type SubmitRequest struct {
	SourceURL string `json:"sourceUrl"`
	Title     string `json:"title,omitempty"`
	Priority  int    `json:"priority,omitempty"`
}

//SubmitResult is the submit response in JSON
type SubmitResult struct {
	ID string `json:"id"`
}

//StatusResult describes the job state for pollers and websocket subscribers
type StatusResult struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Position         int    `json:"position,omitempty"`
	EstimatedWaitSec int    `json:"estimatedWaitSec,omitempty"`
	Error            string `json:"error,omitempty"`
}

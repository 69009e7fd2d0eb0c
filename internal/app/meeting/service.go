package meeting

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/airenas/meetgo/internal/app/meeting/api"
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"bitbucket.org/airenas/meetgo/internal/pkg/status"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//JobEnqueuer puts a new job into the queue
type JobEnqueuer interface {
	Enqueue(job *persistence.Job) (*persistence.Job, error)
}

//JobLoader reads job state and its place in the queue
type JobLoader interface {
	Load(ID string) (*persistence.Job, error)
	Position(job *persistence.Job) (int, error)
}

//ResultProvider returns the final turn list for a job
type ResultProvider interface {
	Get(ID string) ([]persistence.Turn, error)
}

type serviceMetric struct {
	submitResponseDur prometheus.ObserverVec
	submitRequestSize prometheus.ObserverVec
	statusResponseDur prometheus.ObserverVec
	resultResponseDur prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	Enqueuer      JobEnqueuer
	Jobs          JobLoader
	Results       ResultProvider
	MessageSender messages.Sender

	AvgJobDuration   time.Duration
	EventChannelFunc eventChannelFunc

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	if data.EventChannelFunc != nil {
		go registerQueue(data, make(chan bool), time.Second)
	}

	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	sh := promhttp.InstrumentHandlerDuration(data.metrics.submitResponseDur,
		promhttp.InstrumentHandlerRequestSize(data.metrics.submitRequestSize, submitHandler{data: data}))
	sth := promhttp.InstrumentHandlerDuration(data.metrics.statusResponseDur, statusHandler{data: data})
	rh := promhttp.InstrumentHandlerDuration(data.metrics.resultResponseDur, resultHandler{data: data})
	router.Methods("POST").Path("/meetings").Handler(sh)
	router.Methods("GET").Path("/status/{id}").Handler(sth)
	router.Methods("GET").Path("/result/{id}").Handler(rh)
	router.Handle("/subscribe", websocketHandler{data: data})
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
	router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	return router
}

type submitHandler struct {
	data *ServiceData
}

func (h submitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Submit request from %s", r.Host)

	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Can't decode request", http.StatusBadRequest)
		cmdapp.Log.Error(errors.Wrap(err, "Can't decode request"))
		return
	}
	if req.SourceURL == "" {
		http.Error(w, "No sourceUrl", http.StatusBadRequest)
		cmdapp.Log.Errorf("No sourceUrl")
		return
	}

	id := uuid.New().String()
	job := &persistence.Job{ID: id, Title: req.Title, SourceURL: req.SourceURL,
		Priority: req.Priority}
	if _, err := h.data.Enqueuer.Enqueue(job); err != nil {
		http.Error(w, "Can't enqueue job", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if err := h.data.MessageSender.Send(messages.NewQueueMessage(id),
		messages.JobStatusChange, ""); err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "Can't send status change message"))
	}

	writeJSON(w, api.SubmitResult{ID: id})
}

type statusHandler struct {
	data *ServiceData
}

func (h statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "No ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No ID")
		return
	}
	result, err := getStatusResult(h.data, id)
	if err != nil {
		http.Error(w, "Can't get status for ID: "+id, http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if result == nil {
		http.Error(w, "Unknown ID: "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// getStatusResult builds the status answer. Queue position and estimated
// wait are provided for queued jobs only
func getStatusResult(data *ServiceData, id string) (*api.StatusResult, error) {
	job, err := data.Jobs.Load(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	res := &api.StatusResult{ID: job.ID, Status: job.Status, Error: job.Error}
	if job.Status == status.Name(status.Queued) {
		pos, err := data.Jobs.Position(job)
		if err != nil {
			return nil, errors.Wrap(err, "Can't get queue position")
		}
		res.Position = pos
		res.EstimatedWaitSec = pos * int(data.AvgJobDuration.Seconds())
	}
	return res, nil
}

type resultHandler struct {
	data *ServiceData
}

func (h resultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "No ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No ID")
		return
	}
	turns, err := h.data.Results.Get(id)
	if err != nil {
		http.Error(w, "Can't get result for ID: "+id, http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if turns == nil {
		http.Error(w, "No result for ID: "+id, http.StatusNotFound)
		return
	}
	writeJSON(w, turns)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(data); err != nil {
		http.Error(w, "Can't prepare result", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
	}
}

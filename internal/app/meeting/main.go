package meeting

import (
	"time"

	"bitbucket.org/airenas/meetgo/internal/app/pipeline"
	"bitbucket.org/airenas/meetgo/internal/app/scheduler"
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/downloader"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/metrics"
	"bitbucket.org/airenas/meetgo/internal/pkg/mongo"
	"bitbucket.org/airenas/meetgo/internal/pkg/rabbit"
	"bitbucket.org/airenas/meetgo/internal/pkg/transcriber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"github.com/heptiolabs/healthcheck"
)

var appName = "Meeting Transcription Service"

var rootCmd = &cobra.Command{
	Use:   "meetingService",
	Short: appName,
	Long:  `HTTP server to submit meeting recordings, runs the diarization pipeline worker`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("queue.avgJobDuration", "20m")
	cmdapp.Config.SetDefault("queue.pollInterval", "3s")
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	data := &ServiceData{}
	err := initMetrics(data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	data.health = healthcheck.NewHandler()

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
	defer msgChannelProvider.Close()
	data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))

	err = initQueues(msgChannelProvider)
	cmdapp.CheckOrPanic(err, "Can't init queues")
	data.MessageSender = rabbit.NewSender(msgChannelProvider, nil)
	data.EventChannelFunc = func() (<-chan amqp.Delivery, error) {
		ch, err := msgChannelProvider.Channel()
		if err != nil {
			return nil, err
		}
		return rabbit.NewChannel(ch, messages.JobStatusChange)
	}

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")
	data.Enqueuer = jobStore
	data.Jobs = jobStore

	segmentStore, err := mongo.NewSegmentStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init segment store")
	data.Results = segmentStore

	profileStore, err := mongo.NewProfileStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init profile store")

	chain, err := llm.NewChain()
	cmdapp.CheckOrPanic(err, "Can't init llm chain")

	extractor, err := pipeline.NewProfileExtractor(chain)
	cmdapp.CheckOrPanic(err, "Can't init profile extractor")

	diarizer, err := pipeline.NewDiarizer(chain)
	cmdapp.CheckOrPanic(err, "Can't init diarizer")

	dwn, err := downloader.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init downloader")

	trn, err := transcriber.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init transcriber")

	processor, err := pipeline.NewServiceData(&pipeline.ServiceData{
		Downloader:   dwn,
		Transcriber:  trn,
		Extractor:    extractor,
		Diarizer:     diarizer,
		BatchOpts:    pipeline.BatchOptionsFromConfig(),
		TurnSaver:    segmentStore,
		ProfileSaver: profileStore,
		TitleSaver:   jobStore,
	})
	cmdapp.CheckOrPanic(err, "Can't init pipeline")

	worker := &scheduler.ServiceData{
		Queue:         jobStore,
		Processor:     processor,
		MessageSender: data.MessageSender,
		PollInterval:  cmdapp.Config.GetDuration("queue.pollInterval"),
	}
	err = scheduler.StartWorkerService(worker)
	cmdapp.CheckOrPanic(err, "Can't start scheduler worker")
	defer worker.Stop()

	data.AvgJobDuration = cmdapp.Config.GetDuration("queue.avgJobDuration")
	data.Port = cmdapp.Config.GetInt("port")

	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initQueues(prv *rabbit.ChannelProvider) error {
	cmdapp.Log.Info("Initializing queues")
	return prv.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		for _, q := range []string{messages.JobCompleted, messages.JobStatusChange} {
			if _, err := rabbit.Declare(ch, q); err != nil {
				return err
			}
		}
		return nil
	})
}

func initMetrics(data *ServiceData) error {
	namespace := "meeting_service"
	data.metrics.submitResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_request_durations_seconds",
			Help:      "Submit request latency distributions.",
		}, nil)
	err := metrics.Register(data.metrics.submitResponseDur)
	if err != nil {
		return err
	}
	data.metrics.submitRequestSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "submit_request_size_bytes",
			Help:      "Submit request size in bytes."}, nil)
	err = metrics.Register(data.metrics.submitRequestSize)
	if err != nil {
		return err
	}
	data.metrics.statusResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_request_durations_seconds",
			Help:      "Status request latency distributions.",
		}, nil)
	err = metrics.Register(data.metrics.statusResponseDur)
	if err != nil {
		return err
	}
	data.metrics.resultResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_request_durations_seconds",
			Help:      "Result request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.resultResponseDur)
}

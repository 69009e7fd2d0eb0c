package notes

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"bitbucket.org/airenas/meetgo/internal/pkg/mongo"
	"bitbucket.org/airenas/meetgo/internal/pkg/rabbit"
	"bitbucket.org/airenas/meetgo/internal/pkg/utils"
	"github.com/spf13/cobra"
)

var appName = "Meeting Notes Service"

var rootCmd = &cobra.Command{
	Use:   "notesService",
	Short: appName,
	Long:  `Service listens for job completion events and generates meeting summary and minutes`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	data := ServiceData{}
	data.fc = utils.NewSignalChannel()

	msgChannelProvider, err := rabbit.NewChannelProvider()
	cmdapp.CheckOrPanic(err, "Can't init rabbit channel provider")
	defer msgChannelProvider.Close()

	ch, err := msgChannelProvider.Channel()
	cmdapp.CheckOrPanic(err, "Can't open channel")
	err = ch.Qos(1, 0, false)
	cmdapp.CheckOrPanic(err, "Can't set Qos")

	data.workCh, err = rabbit.NewChannel(ch, messages.JobCompleted)
	cmdapp.CheckOrPanic(err, "Can't listen to "+messages.JobCompleted+" channel")

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo provider")
	defer mongoSessionProvider.Close()

	data.turns, err = mongo.NewSegmentStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init segment store")

	data.jobs, err = mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")

	data.saver, err = mongo.NewNotesStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init notes store")

	chain, err := llm.NewChain()
	cmdapp.CheckOrPanic(err, "Can't init llm chain")

	data.generator, err = NewGenerator(chain)
	cmdapp.CheckOrPanic(err, "Can't init generator")

	err = StartWorkerService(&data)
	cmdapp.CheckOrPanic(err, "Can't start worker")
	<-data.fc.C
	cmdapp.Log.Infof("Exiting service")
}

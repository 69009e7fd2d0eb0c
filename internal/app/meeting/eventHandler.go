package meeting

import (
	"encoding/json"
	"time"

	"bitbucket.org/airenas/meetgo/internal/app/meeting/api"
	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type eventChannelFunc func() (<-chan amqp.Delivery, error)

func listenQueue(channel <-chan amqp.Delivery, data *ServiceData, fc chan<- bool) {
	for d := range channel {
		err := processMsg(&d, data)
		if err != nil {
			cmdapp.Log.Errorf("Can't process message %s\n%s", d.MessageId, string(d.Body))
			cmdapp.Log.Error(err)
		}
	}
	cmdapp.Log.Infof("Stopped listening status queue")
	close(fc)
}

func registerQueue(data *ServiceData, quitChan <-chan bool, initialWait time.Duration) {
	wait := initialWait
	for {
		select {
		case <-quitChan:
			cmdapp.Log.Infof("Quit listening status queue")
			return
		default:
			fc := make(chan bool)
			cmdapp.Log.Infof("Trying listening status queue")
			msgs, err := data.EventChannelFunc()
			if err != nil {
				cmdapp.Log.Error(err)
				wait = wait * 2
				if wait > time.Minute {
					wait = time.Minute
				}
				cmdapp.Log.Infof("Wait before reconnect %d s", wait/time.Second)
				time.Sleep(wait)
				continue
			}
			wait = initialWait
			go listenQueue(msgs, data, fc)
			<-fc
		}
	}
}

// processMsg pushes the fresh job status to every subscribed connection
func processMsg(d *amqp.Delivery, data *ServiceData) error {
	var message messages.QueueMessage
	if err := json.Unmarshal(d.Body, &message); err != nil {
		return errors.Wrap(err, "Can't unmarshal message "+string(d.Body))
	}
	cmdapp.Log.Infof("Got status change event for %s", message.ID)
	conns, found := getConnections(message.ID)
	if !found {
		cmdapp.Log.Infof("No ws connections for %s", message.ID)
		return nil
	}
	result, err := getStatusResult(data, message.ID)
	if err != nil {
		return errors.Wrap(err, "Can't get status for ID: "+message.ID)
	}
	if result == nil {
		result = &api.StatusResult{ID: message.ID, Error: message.Error}
	}
	for c := range conns {
		cmdapp.LogIf(sendMsg(c, result))
	}
	return nil
}

func sendMsg(c WsConn, result *api.StatusResult) error {
	cmdapp.Log.Debugf("Sending status of %s to websocket", result.ID)
	err := c.WriteJSON(result)
	if err != nil {
		return errors.Wrap(err, "Can't write to websocket")
	}
	return nil
}

package rabbit

import (
	"encoding/json"
	"sync"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

//Sender performs messages sending using rabbit mq broker
type Sender struct {
	ChannelProvider *ChannelProvider
	initialized     bool
	initFunc        initFunc
	m               sync.Mutex
}

type initFunc func(*ChannelProvider) error

//NewSender initializes rabbit sender. f may be nil when queues are declared elsewhere
func NewSender(provider *ChannelProvider, f initFunc) *Sender {
	return &Sender{ChannelProvider: provider, initialized: false, initFunc: f}
}

//Send sends the message to queue
func (sender *Sender) Send(message *messages.QueueMessage, queue string, replyQueue string) error {
	err := initialize(sender)
	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't initialize sender")
	}
	cmdapp.Log.Infof("Sending message %s(%s)", queue, message.ID)

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Can't marshal message")
	}

	ch, err := sender.ChannelProvider.Channel()
	if err != nil {
		return errors.Wrap(err, "Can't init channel")
	}
	err = ch.Publish(
		"", // exchange
		queue,
		false, // mandatory
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         msgBytes,
			ReplyTo:      replyQueue,
		})

	if err != nil {
		defer sender.ChannelProvider.Close() // lets init sender again
		return errors.Wrap(err, "Can't send message")
	}
	return nil
}

func initialize(sender *Sender) error {
	sender.m.Lock()
	defer sender.m.Unlock()

	if !sender.initialized {
		if sender.initFunc != nil {
			if err := sender.initFunc(sender.ChannelProvider); err != nil {
				return err
			}
		}
		sender.initialized = true
	}
	return nil
}

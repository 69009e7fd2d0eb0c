package rabbit

import "github.com/streadway/amqp"

//NewChannel declares the queue and registers a consumer on it
func NewChannel(ch *amqp.Channel, qName string) (<-chan amqp.Delivery, error) {
	_, err := Declare(ch, qName)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		qName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
}

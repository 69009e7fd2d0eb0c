package mocks

import (
	"bitbucket.org/airenas/meetgo/internal/pkg/messages"
	"github.com/stretchr/testify/mock"
)

//Sender is a mock for messages.Sender
type Sender struct {
	mock.Mock
}

//Send is a mocked Send function
func (m *Sender) Send(message *messages.QueueMessage, queue string, replyQueue string) error {
	args := m.Mock.Called(message, queue, replyQueue)
	return args.Error(0)
}

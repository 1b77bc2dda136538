// Package mocks provides testify mocks of the watermill transport interfaces.
package mocks

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of watermill's message.Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, messages ...*message.Message) error {
	args := m.Called(topic, messages)

	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()

	return args.Error(0)
}

// MockSubscriber is a mock implementation of watermill's message.Subscriber interface.
type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	args := m.Called(ctx, topic)

	if ch := args.Get(0); ch != nil {
		return ch.(<-chan *message.Message), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockSubscriber) Close() error {
	args := m.Called()

	return args.Error(0)
}

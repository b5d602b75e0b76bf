package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fabricioGuac/chat-fusion/internal/fanout"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) Publish(ctx context.Context, destination string, event fanout.Event) error {
	args := m.Called(ctx, destination, event)
	return args.Error(0)
}

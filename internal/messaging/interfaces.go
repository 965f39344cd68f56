package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisher interface {
	Publish(messages ...*message.Message) error
	Close() error
}

type ISubscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
	Close() error
}

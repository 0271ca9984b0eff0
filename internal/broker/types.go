package broker

import "context"

// Message is a raw broker message; callers unmarshal the value into the
// topic's payload type.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg Message) error

package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"
)

// MemoryBroker delivers messages to in-process subscribers. Every
// subscriber of a channel receives every message published after it
// subscribed.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]chan Message)}
}

// Publish hands the message to each current subscriber. It blocks while a
// subscriber's buffer is full, until ctx is done.
func (b *MemoryBroker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", errors.New("memory broker closed")
	}
	subs := append([]chan Message(nil), b.subs[channel]...)
	b.mu.Unlock()

	message := Message{
		ID:         ksuid.New().String(),
		Data:       append([]byte(nil), data...),
		Attributes: attrs,
	}
	for _, sub := range subs {
		select {
		case sub <- message:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return message.ID, nil
}

// Subscribe runs handler for each message until ctx is done. Handler
// errors are dropped; there is no redelivery.
func (b *MemoryBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	ch := make(chan Message, 64)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("memory broker closed")
	}
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	defer b.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-ch:
			_ = handler(ctx, message)
		}
	}
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]chan Message)
	return nil
}

// Subscribers reports how many subscribers are attached to channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

func (b *MemoryBroker) unsubscribe(channel string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[channel]
	for i, existing := range subs {
		if existing == ch {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

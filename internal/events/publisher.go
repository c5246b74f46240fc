package events

import (
	"context"
	"log"
)

// Publisher emits user lifecycle events. Publishing is best-effort: callers
// log failures and never fail the originating request over them.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, userID, email, provider string) error
	PublishEmailVerified(ctx context.Context, userID, email string) error
	PublishUserOnboarded(ctx context.Context, userID string) error

	// Close closes the publisher and releases resources
	Close() error
}

type EventPublisher struct {
	rabbitMQ *RabbitMQClient
	enabled  bool
}

// NewEventPublisher connects to RabbitMQ. An empty URI yields a disabled
// publisher that drops events, so the server runs without a broker.
func NewEventPublisher(rabbitURI string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false}, nil
	}

	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	if err := client.setupExchanges(); err != nil {
		client.Close()
		return nil, err
	}

	return &EventPublisher{
		rabbitMQ: client,
		enabled:  true,
	}, nil
}

func (p *EventPublisher) publish(eventType EventType, data []byte, marshalErr error) error {
	if !p.enabled {
		log.Printf("Event publishing is disabled, skipping %s", eventType)
		return nil
	}
	if marshalErr != nil {
		return marshalErr
	}
	return p.rabbitMQ.PublishEvent(string(eventType), data)
}

func (p *EventPublisher) PublishUserRegistered(ctx context.Context, userID, email, provider string) error {
	event := NewUserRegisteredEvent(userID, email, provider)
	data, err := event.ToJSON()
	if err := p.publish(UserRegistered, data, err); err != nil {
		return err
	}
	log.Printf("Published %s event for user ID: %s", UserRegistered, userID)
	return nil
}

func (p *EventPublisher) PublishEmailVerified(ctx context.Context, userID, email string) error {
	event := NewEmailVerifiedEvent(userID, email)
	data, err := event.ToJSON()
	if err := p.publish(EmailVerified, data, err); err != nil {
		return err
	}
	log.Printf("Published %s event for user ID: %s", EmailVerified, userID)
	return nil
}

func (p *EventPublisher) PublishUserOnboarded(ctx context.Context, userID string) error {
	event := NewUserOnboardedEvent(userID)
	data, err := event.ToJSON()
	if err := p.publish(UserOnboarded, data, err); err != nil {
		return err
	}
	log.Printf("Published %s event for user ID: %s", UserOnboarded, userID)
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled || p.rabbitMQ == nil {
		return nil
	}
	return p.rabbitMQ.Close()
}

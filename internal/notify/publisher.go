package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	RoutingKeyNotification = "loan.notification"
	publisherAppID         = "lending-engine"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ChannelOpener opens a fresh channel per publish.
type ChannelOpener func() (Channel, error)

// NotificationEvent is the JSON body published for every notification.
type NotificationEvent struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes notifications to a RabbitMQ topic exchange so that
// downstream services (SMS, push) can deliver them.
type EventPublisher struct {
	open     ChannelOpener
	exchange string
	logger   logrus.FieldLogger
}

// NewEventPublisher declares the topic exchange on conn and returns a
// publisher bound to it.
func NewEventPublisher(conn *amqp.Connection, exchange string, logger logrus.FieldLogger) (*EventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchange == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for exchange declaration: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	logger.WithFields(logrus.Fields{"exchange": exchange, "type": amqp.ExchangeTopic}).Info("Ensured RabbitMQ exchange exists")

	opener := func() (Channel, error) {
		return conn.Channel()
	}
	return NewEventPublisherWithOpener(opener, exchange, logger), nil
}

func NewEventPublisherWithOpener(open ChannelOpener, exchange string, logger logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{
		open:     open,
		exchange: exchange,
		logger:   logger.WithFields(logrus.Fields{"component": "event_publisher", "exchange": exchange}),
	}
}

func (p *EventPublisher) Notify(ctx context.Context, recipient, subject, body string) error {
	return p.publish(ctx, RoutingKeyNotification, NotificationEvent{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, routingKey string, payload any) error {
	log := p.logger.WithField("routing_key", routingKey)

	channel, err := p.open()
	if err != nil {
		log.WithError(err).Error("Failed to open RabbitMQ channel")
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
		AppId:        publisherAppID,
	})
	if err != nil {
		log.WithError(err).Error("Failed to publish message to RabbitMQ")
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Debug("Published message")
	return nil
}

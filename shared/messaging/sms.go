// Package messaging dispatches outbound user notifications: templated email through
// SMTP and SMS through a RabbitMQ queue consumed by the SMS gateway worker.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultSmsQueue = "identity.sms"

// Publisher is the subset of *amqp.Channel used to publish messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SmsMessage is the queue payload read by the SMS gateway.
type SmsMessage struct {
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"body"`
}

// SmsPublisher publishes SMS messages to a durable queue on the default exchange.
type SmsPublisher struct {
	pub   Publisher
	queue string
}

func NewSmsPublisher(pub Publisher, queue string) *SmsPublisher {
	if queue == "" {
		queue = DefaultSmsQueue
	}

	return &SmsPublisher{pub: pub, queue: queue}
}

// SendSms enqueues body for delivery to phoneNumber.
func (p *SmsPublisher) SendSms(ctx context.Context, phoneNumber, body string) error {
	payload, err := json.Marshal(SmsMessage{PhoneNumber: phoneNumber, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}

	if err := p.pub.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}

	return nil
}

// Dial opens a connection and channel and declares the SMS queue. Callers close both.
func Dial(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if queue == "" {
		queue = DefaultSmsQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	return conn, ch, nil
}

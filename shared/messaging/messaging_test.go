package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	key string
	msg amqp.Publishing
	err error
}

func (p *fakePublisher) PublishWithContext(
	_ context.Context,
	_, key string,
	_, _ bool,
	msg amqp.Publishing,
) error {
	p.key = key
	p.msg = msg
	return p.err
}

func TestSmsPublisher_SendSms(t *testing.T) {
	pub := &fakePublisher{}
	p := NewSmsPublisher(pub, "")

	require.NoError(t, p.SendSms(context.Background(), "+15550100", "Your code is 123456"))

	assert.Equal(t, DefaultSmsQueue, pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var got SmsMessage
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, SmsMessage{PhoneNumber: "+15550100", Body: "Your code is 123456"}, got)
}

func TestSmsPublisher_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	p := NewSmsPublisher(&fakePublisher{err: boom}, "sms")

	assert.ErrorIs(t, p.SendSms(context.Background(), "+1", "x"), boom)
}

func TestDispatcher_DisabledChannels(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(&logger, nil, nil)

	assert.ErrorIs(t, d.SendSms(context.Background(), "+1", "x"), ErrChannelDisabled)
	assert.ErrorIs(t, d.SendEmailUsingTemplate(context.Background(), "a@b.c", "T", nil), ErrChannelDisabled)
}

func TestDispatcher_RoutesSms(t *testing.T) {
	logger := zerolog.Nop()
	pub := &fakePublisher{}
	d := NewDispatcher(&logger, nil, NewSmsPublisher(pub, "sms"))

	require.NoError(t, d.SendSms(context.Background(), "+1", "hello"))
	assert.Equal(t, "sms", pub.key)
}

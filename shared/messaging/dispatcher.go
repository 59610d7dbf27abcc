package messaging

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var ErrChannelDisabled = errors.New("messaging channel is not configured")

type EmailSender interface {
	SendEmailUsingTemplate(ctx context.Context, address, templateName string, vars map[string]string) error
}

type SmsSender interface {
	SendSms(ctx context.Context, phoneNumber, body string) error
}

// Dispatcher routes notifications to the configured channels. Either channel may be nil,
// in which case sends on it fail with ErrChannelDisabled.
type Dispatcher struct {
	logger *zerolog.Logger
	email  EmailSender
	sms    SmsSender
}

func NewDispatcher(logger *zerolog.Logger, email EmailSender, sms SmsSender) *Dispatcher {
	return &Dispatcher{logger: logger, email: email, sms: sms}
}

func (d *Dispatcher) SendEmailUsingTemplate(
	ctx context.Context,
	address, templateName string,
	vars map[string]string,
) error {
	if d.email == nil {
		d.logger.Warn().Str("template", templateName).Msg("email channel disabled, dropping message")
		return ErrChannelDisabled
	}

	if err := d.email.SendEmailUsingTemplate(ctx, address, templateName, vars); err != nil {
		d.logger.Error().Err(err).Str("template", templateName).Msg("failed to send email")
		return err
	}

	return nil
}

func (d *Dispatcher) SendSms(ctx context.Context, phoneNumber, body string) error {
	if d.sms == nil {
		d.logger.Warn().Msg("sms channel disabled, dropping message")
		return ErrChannelDisabled
	}

	if err := d.sms.SendSms(ctx, phoneNumber, body); err != nil {
		d.logger.Error().Err(err).Msg("failed to send sms")
		return err
	}

	return nil
}

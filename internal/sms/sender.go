// Package sms delivers short notifications through the Twilio Messages API.
package sms

import (
	"context"

	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
)

type Sender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

type NoopSender struct{}

func (NoopSender) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	return nil
}

// NewSender returns a Twilio client when credentials are configured, Noop
// otherwise.
func NewSender(cfg config.SMSConfig, log *logger.Logger) Sender {
	if !cfg.IsSMSEnabled() {
		return NoopSender{}
	}
	return NewTwilioClient(cfg, log)
}

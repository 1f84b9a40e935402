// Package email delivers transactional mail for the dossier lifecycle. The
// primary sender speaks the Resend HTTP API; an SMTP sender via go-mail is
// available as fallback, and a Noop sender when nothing is configured.
package email

import (
	"context"

	"plombipro_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (base64-encoded for the Resend API)
	FileName string // e.g. "rendez-vous.ics"
	MIMEType string // e.g. "text/calendar"
}

type Sender interface {
	SendClientLinkEmail(ctx context.Context, toEmail, clientName, linkURL string) error
	SendQuoteEmail(ctx context.Context, toEmail, clientName, quoteNumber string, totalTTC float64, signURL string) error
	SendQuoteSignedEmail(ctx context.Context, toEmail, quoteNumber, signatureName string) error
	SendQuoteRefusedEmail(ctx context.Context, toEmail, quoteNumber, reason string) error
	SendRelanceEmail(ctx context.Context, toEmail, clientName, signURL string) error
	SendInvoiceEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64, dueDate, viewURL string) error
	SendInvoicePaidEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64) error
	SendSlotsProposedEmail(ctx context.Context, toEmail, clientName, linkURL string) error
	SendAppointmentConfirmedEmail(ctx context.Context, toEmail, clientName, slotDate, timeRange, address string, attachments ...Attachment) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

type NoopSender struct{}

func (NoopSender) SendClientLinkEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
	return nil
}

func (NoopSender) SendQuoteEmail(ctx context.Context, toEmail, clientName, quoteNumber string, totalTTC float64, signURL string) error {
	return nil
}

func (NoopSender) SendQuoteSignedEmail(ctx context.Context, toEmail, quoteNumber, signatureName string) error {
	return nil
}

func (NoopSender) SendQuoteRefusedEmail(ctx context.Context, toEmail, quoteNumber, reason string) error {
	return nil
}

func (NoopSender) SendRelanceEmail(ctx context.Context, toEmail, clientName, signURL string) error {
	return nil
}

func (NoopSender) SendInvoiceEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64, dueDate, viewURL string) error {
	return nil
}

func (NoopSender) SendInvoicePaidEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64) error {
	return nil
}

func (NoopSender) SendSlotsProposedEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
	return nil
}

func (NoopSender) SendAppointmentConfirmedEmail(ctx context.Context, toEmail, clientName, slotDate, timeRange, address string, attachments ...Attachment) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender picks the configured transport: Resend when an API key is set,
// SMTP when only a host is set, Noop otherwise.
func NewSender(cfg interface {
	config.EmailConfig
	config.SMTPConfig
}) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetResendAPIKey() != "" {
		return NewResendSender(cfg), nil
	}
	if cfg.IsSMTPEnabled() {
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	}
	return NoopSender{}, nil
}

package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers the same templates over a direct SMTP connection via
// go-mail. Used when no Resend API key is configured.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendClientLinkEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
	content, err := renderEmailTemplate("client_link.html", clientLinkEmailData{
		baseEmailData: baseEmailData{
			Title:    "Suivi de votre demande",
			Heading:  "Votre demande est enregistrée",
			CTALabel: "Suivre ma demande",
			CTAURL:   linkURL,
		},
		ClientName: clientName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectClientLink, content)
}

func (s *SMTPSender) SendQuoteEmail(ctx context.Context, toEmail, clientName, quoteNumber string, totalTTC float64, signURL string) error {
	subject := fmt.Sprintf(subjectQuoteFmt, quoteNumber)
	content, err := renderEmailTemplate("quote_send.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    "Votre devis",
			Heading:  "Votre devis est prêt",
			CTALabel: "Consulter le devis",
			CTAURL:   signURL,
		},
		ClientName:     clientName,
		QuoteNumber:    quoteNumber,
		TotalFormatted: formatEUR(totalTTC),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendQuoteSignedEmail(ctx context.Context, toEmail, quoteNumber, signatureName string) error {
	subject := fmt.Sprintf(subjectQuoteSignedFmt, quoteNumber)
	content, err := renderEmailTemplate("quote_signed.html", quoteSignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Devis signé",
			Heading: "Devis signé",
		},
		QuoteNumber:   quoteNumber,
		SignatureName: signatureName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendQuoteRefusedEmail(ctx context.Context, toEmail, quoteNumber, reason string) error {
	subject := fmt.Sprintf(subjectQuoteRefusedFmt, quoteNumber)
	content, err := renderEmailTemplate("quote_refused.html", quoteRefusedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Devis refusé",
			Heading: "Devis refusé",
		},
		QuoteNumber: quoteNumber,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendRelanceEmail(ctx context.Context, toEmail, clientName, signURL string) error {
	content, err := renderEmailTemplate("relance.html", relanceEmailData{
		baseEmailData: baseEmailData{
			Title:    "Votre devis vous attend",
			Heading:  "Votre devis vous attend",
			CTALabel: "Consulter le devis",
			CTAURL:   signURL,
		},
		ClientName: clientName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectRelance, content)
}

func (s *SMTPSender) SendInvoiceEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64, dueDate, viewURL string) error {
	subject := fmt.Sprintf(subjectInvoiceFmt, invoiceNumber)
	content, err := renderEmailTemplate("invoice_send.html", invoiceEmailData{
		baseEmailData: baseEmailData{
			Title:    "Votre facture",
			Heading:  "Votre facture est disponible",
			CTALabel: "Consulter la facture",
			CTAURL:   viewURL,
		},
		ClientName:     clientName,
		InvoiceNumber:  invoiceNumber,
		TotalFormatted: formatEUR(totalTTC),
		DueDate:        dueDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendInvoicePaidEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64) error {
	subject := fmt.Sprintf(subjectInvoicePaidFmt, invoiceNumber)
	content, err := renderEmailTemplate("invoice_paid.html", invoicePaidEmailData{
		baseEmailData: baseEmailData{
			Title:   "Règlement reçu",
			Heading: "Règlement reçu",
		},
		ClientName:     clientName,
		InvoiceNumber:  invoiceNumber,
		TotalFormatted: formatEUR(totalTTC),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendSlotsProposedEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
	content, err := renderEmailTemplate("slots_proposed.html", slotsProposedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Créneaux proposés",
			Heading:  "Choisissez votre créneau",
			CTALabel: "Choisir un créneau",
			CTAURL:   linkURL,
		},
		ClientName: clientName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectSlotsProposed, content)
}

func (s *SMTPSender) SendAppointmentConfirmedEmail(ctx context.Context, toEmail, clientName, slotDate, timeRange, address string, attachments ...Attachment) error {
	subject := fmt.Sprintf(subjectAppointmentConfirmedFmt, slotDate)
	content, err := renderEmailTemplate("appointment_confirmed.html", appointmentConfirmedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Rendez-vous confirmé",
			Heading: "Rendez-vous confirmé",
		},
		ClientName: clientName,
		SlotDate:   slotDate,
		TimeRange:  timeRange,
		Address:    address,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content, attachments...)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

var _ Sender = (*SMTPSender)(nil)

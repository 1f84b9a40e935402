package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"plombipro_backend/platform/config"
)

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

type resendAttachment struct {
	Content  string `json:"content"` // base64-encoded file content
	Filename string `json:"filename"`
}

type resendEmailRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	return &ResendSender{
		apiKey:    cfg.GetResendAPIKey(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *ResendSender) SendClientLinkEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
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
	return r.send(ctx, toEmail, subjectClientLink, content)
}

func (r *ResendSender) SendQuoteEmail(ctx context.Context, toEmail, clientName, quoteNumber string, totalTTC float64, signURL string) error {
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
	return r.send(ctx, toEmail, subject, content)
}

func (r *ResendSender) SendQuoteSignedEmail(ctx context.Context, toEmail, quoteNumber, signatureName string) error {
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
	return r.send(ctx, toEmail, subject, content)
}

func (r *ResendSender) SendQuoteRefusedEmail(ctx context.Context, toEmail, quoteNumber, reason string) error {
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
	return r.send(ctx, toEmail, subject, content)
}

func (r *ResendSender) SendRelanceEmail(ctx context.Context, toEmail, clientName, signURL string) error {
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
	return r.send(ctx, toEmail, subjectRelance, content)
}

func (r *ResendSender) SendInvoiceEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64, dueDate, viewURL string) error {
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
	return r.send(ctx, toEmail, subject, content)
}

func (r *ResendSender) SendInvoicePaidEmail(ctx context.Context, toEmail, clientName, invoiceNumber string, totalTTC float64) error {
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
	return r.send(ctx, toEmail, subject, content)
}

func (r *ResendSender) SendSlotsProposedEmail(ctx context.Context, toEmail, clientName, linkURL string) error {
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
	return r.send(ctx, toEmail, subjectSlotsProposed, content)
}

func (r *ResendSender) SendAppointmentConfirmedEmail(ctx context.Context, toEmail, clientName, slotDate, timeRange, address string, attachments ...Attachment) error {
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
	return r.sendWithAttachments(ctx, toEmail, subject, content, attachments...)
}

func (r *ResendSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return r.send(ctx, toEmail, subject, htmlContent)
}

func (r *ResendSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	return r.sendWithAttachments(ctx, toEmail, subject, htmlContent)
}

func (r *ResendSender) sendWithAttachments(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	payload := resendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", r.fromName, r.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		HTML:    htmlContent,
	}

	for _, att := range attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Content:  base64.StdEncoding.EncodeToString(att.Content),
			Filename: att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}

var _ Sender = (*ResendSender)(nil)

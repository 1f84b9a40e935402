package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type clientLinkEmailData struct {
	baseEmailData
	ClientName string
}

type quoteEmailData struct {
	baseEmailData
	ClientName     string
	QuoteNumber    string
	TotalFormatted string
}

type quoteSignedEmailData struct {
	baseEmailData
	QuoteNumber   string
	SignatureName string
}

type quoteRefusedEmailData struct {
	baseEmailData
	QuoteNumber string
	Reason      string
}

type relanceEmailData struct {
	baseEmailData
	ClientName string
}

type invoiceEmailData struct {
	baseEmailData
	ClientName     string
	InvoiceNumber  string
	TotalFormatted string
	DueDate        string
}

type invoicePaidEmailData struct {
	baseEmailData
	ClientName     string
	InvoiceNumber  string
	TotalFormatted string
}

type slotsProposedEmailData struct {
	baseEmailData
	ClientName string
}

type appointmentConfirmedEmailData struct {
	baseEmailData
	ClientName string
	SlotDate   string
	TimeRange  string
	Address    string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatEUR(amount float64) string {
	return fmt.Sprintf("%.2f €", amount)
}

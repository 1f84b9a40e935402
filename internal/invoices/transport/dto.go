package transport

import (
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/invoices/repository"
)

type LineRequest struct {
	Label     string  `json:"label" validate:"required,max=200"`
	Quantity  float64 `json:"quantity" validate:"min=0"`
	UnitPrice float64 `json:"unitPrice" validate:"min=0"`
	VatRate   float64 `json:"vatRate" validate:"min=0,max=100"`
	Discount  float64 `json:"discount" validate:"min=0,max=100"`
}

type CreateInvoiceRequest struct {
	DossierID   uuid.UUID     `json:"dossierId" validate:"required"`
	FromQuoteID *uuid.UUID    `json:"fromQuoteId,omitempty"`
	Lines       []LineRequest `json:"lines" validate:"omitempty,max=100,dive"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

type BillingDetailsResponse struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	SIRET   string `json:"siret,omitempty"`
	VATID   string `json:"vatId,omitempty"`
}

type LineResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	VatRate   float64   `json:"vatRate"`
	Discount  float64   `json:"discount"`
	TotalHT   float64   `json:"totalHt"`
	TotalTVA  float64   `json:"totalTva"`
}

type InvoiceResponse struct {
	ID            uuid.UUID              `json:"id"`
	DossierID     uuid.UUID              `json:"dossierId"`
	QuoteID       *uuid.UUID             `json:"quoteId,omitempty"`
	InvoiceNumber string                 `json:"invoiceNumber"`
	Status        string                 `json:"status"`
	TotalHT       float64                `json:"totalHt"`
	TotalTVA      float64                `json:"totalTva"`
	TotalTTC      float64                `json:"totalTtc"`
	DueDate       *time.Time             `json:"dueDate,omitempty"`
	PaidAt        *time.Time             `json:"paidAt,omitempty"`
	SentAt        *time.Time             `json:"sentAt,omitempty"`
	Artisan       BillingDetailsResponse `json:"artisan"`
	Client        BillingDetailsResponse `json:"client"`
	Lines         []LineResponse         `json:"lines,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// PublicInvoiceResponse is the client-facing view behind the share link.
type PublicInvoiceResponse struct {
	InvoiceNumber string                 `json:"invoiceNumber"`
	Status        string                 `json:"status"`
	TotalHT       float64                `json:"totalHt"`
	TotalTVA      float64                `json:"totalTva"`
	TotalTTC      float64                `json:"totalTtc"`
	DueDate       *time.Time             `json:"dueDate,omitempty"`
	PaidAt        *time.Time             `json:"paidAt,omitempty"`
	Artisan       BillingDetailsResponse `json:"artisan"`
	Client        BillingDetailsResponse `json:"client"`
	Lines         []LineResponse         `json:"lines"`
}

func toBillingDetails(d repository.BillingDetails) BillingDetailsResponse {
	return BillingDetailsResponse{
		Name:    d.Name,
		Address: d.Address,
		ZipCode: d.ZipCode,
		City:    d.City,
		Phone:   d.Phone,
		Email:   d.Email,
		SIRET:   d.SIRET,
		VATID:   d.VATID,
	}
}

func ToLineResponses(lines []repository.Line) []LineResponse {
	out := make([]LineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineResponse{
			ID:        line.ID,
			Label:     line.Label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			VatRate:   line.VatRate,
			Discount:  line.Discount,
			TotalHT:   line.TotalHT,
			TotalTVA:  line.TotalTVA,
		})
	}
	return out
}

func ToInvoiceResponse(inv repository.Invoice, lines []repository.Line) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		DossierID:     inv.DossierID,
		QuoteID:       inv.QuoteID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		TotalHT:       inv.TotalHT,
		TotalTVA:      inv.TotalTVA,
		TotalTTC:      inv.TotalTTC,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		SentAt:        inv.SentAt,
		Artisan:       toBillingDetails(inv.ArtisanDetails),
		Client:        toBillingDetails(inv.ClientDetails),
		Lines:         ToLineResponses(lines),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func ToInvoiceResponses(invoices []repository.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ToInvoiceResponse(inv, nil))
	}
	return out
}

func ToPublicInvoiceResponse(inv repository.Invoice, lines []repository.Line) PublicInvoiceResponse {
	return PublicInvoiceResponse{
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		TotalHT:       inv.TotalHT,
		TotalTVA:      inv.TotalTVA,
		TotalTTC:      inv.TotalTTC,
		DueDate:       inv.DueDate,
		PaidAt:        inv.PaidAt,
		Artisan:       toBillingDetails(inv.ArtisanDetails),
		Client:        toBillingDetails(inv.ClientDetails),
		Lines:         ToLineResponses(lines),
	}
}

package transport

import (
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/quotes/repository"
)

type LineRequest struct {
	Label     string  `json:"label" validate:"required,max=200"`
	Quantity  float64 `json:"quantity" validate:"min=0"`
	UnitPrice float64 `json:"unitPrice" validate:"min=0"`
	VatRate   float64 `json:"vatRate" validate:"min=0,max=100"`
	Discount  float64 `json:"discount" validate:"min=0,max=100"`
}

type CreateQuoteRequest struct {
	DossierID uuid.UUID     `json:"dossierId" validate:"required"`
	Lines     []LineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
}

type UpdateLinesRequest struct {
	Lines []LineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
}

type SignRequest struct {
	SignatureName string `json:"signatureName" validate:"required,max=200"`
}

type RefuseRequest struct {
	Reason string `json:"reason" validate:"max=500"`
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

type QuoteResponse struct {
	ID            uuid.UUID      `json:"id"`
	DossierID     uuid.UUID      `json:"dossierId"`
	QuoteNumber   string         `json:"quoteNumber"`
	Status        string         `json:"status"`
	TotalHT       float64        `json:"totalHt"`
	TotalTVA      float64        `json:"totalTva"`
	TotalTTC      float64        `json:"totalTtc"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
	SignedAt      *time.Time     `json:"signedAt,omitempty"`
	SignatureName *string        `json:"signatureName,omitempty"`
	RefusalReason *string        `json:"refusalReason,omitempty"`
	Lines         []LineResponse `json:"lines,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// PublicQuoteResponse is the client-facing signature view.
type PublicQuoteResponse struct {
	QuoteNumber   string         `json:"quoteNumber"`
	Status        string         `json:"status"`
	TotalHT       float64        `json:"totalHt"`
	TotalTVA      float64        `json:"totalTva"`
	TotalTTC      float64        `json:"totalTtc"`
	SignedAt      *time.Time     `json:"signedAt,omitempty"`
	SignatureName *string        `json:"signatureName,omitempty"`
	Lines         []LineResponse `json:"lines"`
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

func ToQuoteResponse(q repository.Quote, lines []repository.Line) QuoteResponse {
	return QuoteResponse{
		ID:            q.ID,
		DossierID:     q.DossierID,
		QuoteNumber:   q.QuoteNumber,
		Status:        q.Status,
		TotalHT:       q.TotalHT,
		TotalTVA:      q.TotalTVA,
		TotalTTC:      q.TotalTTC,
		SentAt:        q.SentAt,
		SignedAt:      q.SignedAt,
		SignatureName: q.SignatureName,
		RefusalReason: q.RefusalReason,
		Lines:         ToLineResponses(lines),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func ToQuoteResponses(quotes []repository.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, ToQuoteResponse(q, nil))
	}
	return out
}

func ToPublicQuoteResponse(q repository.Quote, lines []repository.Line) PublicQuoteResponse {
	return PublicQuoteResponse{
		QuoteNumber:   q.QuoteNumber,
		Status:        q.Status,
		TotalHT:       q.TotalHT,
		TotalTVA:      q.TotalTVA,
		TotalTTC:      q.TotalTTC,
		SignedAt:      q.SignedAt,
		SignatureName: q.SignatureName,
		Lines:         ToLineResponses(lines),
	}
}

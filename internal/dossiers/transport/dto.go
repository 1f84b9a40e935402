package transport

import (
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
)

type CreateDossierRequest struct {
	ClientFirstName string   `json:"clientFirstName" validate:"required,max=100"`
	ClientLastName  string   `json:"clientLastName" validate:"required,max=100"`
	ClientPhone     string   `json:"clientPhone" validate:"required,max=30"`
	ClientEmail     *string  `json:"clientEmail" validate:"omitempty,email"`
	AddressStreet   string   `json:"addressStreet" validate:"max=200"`
	AddressZipCode  string   `json:"addressZipCode" validate:"max=10"`
	AddressCity     string   `json:"addressCity" validate:"max=100"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ProblemCategory string   `json:"problemCategory" validate:"required,max=50"`
	UrgencyLevel    string   `json:"urgencyLevel" validate:"required,oneof=faible normale urgente"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
}

type UpdateDossierRequest struct {
	ClientFirstName string   `json:"clientFirstName" validate:"required,max=100"`
	ClientLastName  string   `json:"clientLastName" validate:"required,max=100"`
	ClientPhone     string   `json:"clientPhone" validate:"required,max=30"`
	ClientEmail     *string  `json:"clientEmail" validate:"omitempty,email"`
	AddressStreet   string   `json:"addressStreet" validate:"max=200"`
	AddressZipCode  string   `json:"addressZipCode" validate:"max=10"`
	AddressCity     string   `json:"addressCity" validate:"max=100"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ProblemCategory string   `json:"problemCategory" validate:"required,max=50"`
	UrgencyLevel    string   `json:"urgencyLevel" validate:"required,oneof=faible normale urgente"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
}

// PublicIntakeRequest is what a client submits through the artisan's shared
// link. Same shape as CreateDossierRequest minus the geocoding fields, which
// only the artisan UI fills in.
type PublicIntakeRequest struct {
	ClientFirstName string  `json:"clientFirstName" validate:"required,max=100"`
	ClientLastName  string  `json:"clientLastName" validate:"required,max=100"`
	ClientPhone     string  `json:"clientPhone" validate:"required,max=30"`
	ClientEmail     *string `json:"clientEmail" validate:"omitempty,email"`
	AddressStreet   string  `json:"addressStreet" validate:"max=200"`
	AddressZipCode  string  `json:"addressZipCode" validate:"max=10"`
	AddressCity     string  `json:"addressCity" validate:"max=100"`
	ProblemCategory string  `json:"problemCategory" validate:"required,max=50"`
	UrgencyLevel    string  `json:"urgencyLevel" validate:"required,oneof=faible normale urgente"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
}

type PublicIntakeResponse struct {
	DossierID  uuid.UUID `json:"dossierId"`
	SuiviToken string    `json:"suiviToken"`
}

type ListDossiersRequest struct {
	Status string `form:"status"`
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type TransitionRequest struct {
	Action string `json:"action" validate:"required"`
	Detail string `json:"detail" validate:"max=400"`
}

type AppointmentTransitionRequest struct {
	Action string `json:"action" validate:"required"`
	Detail string `json:"detail" validate:"max=400"`
}

type SlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

type ProposeSlotsRequest struct {
	Slots []SlotRequest `json:"slots" validate:"required,min=1,max=10,dive"`
}

type SelectSlotRequest struct {
	SlotID uuid.UUID `json:"slotId" validate:"required"`
}

type StatusMetaResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Selected  bool      `json:"selected"`
}

type DossierResponse struct {
	ID                uuid.UUID          `json:"id"`
	ClientFirstName   string             `json:"clientFirstName"`
	ClientLastName    string             `json:"clientLastName"`
	ClientPhone       string             `json:"clientPhone"`
	ClientEmail       *string            `json:"clientEmail,omitempty"`
	AddressStreet     string             `json:"addressStreet"`
	AddressZipCode    string             `json:"addressZipCode"`
	AddressCity       string             `json:"addressCity"`
	Latitude          *float64           `json:"latitude,omitempty"`
	Longitude         *float64           `json:"longitude,omitempty"`
	ProblemCategory   string             `json:"problemCategory"`
	UrgencyLevel      string             `json:"urgencyLevel"`
	Description       *string            `json:"description,omitempty"`
	Status            string             `json:"status"`
	StatusMeta        StatusMetaResponse `json:"statusMeta"`
	AppointmentStatus string             `json:"appointmentStatus"`
	AppointmentMeta   StatusMetaResponse `json:"appointmentMeta"`
	StatusChangedAt   time.Time          `json:"statusChangedAt"`
	SelectedSlotID    *uuid.UUID         `json:"selectedSlotId,omitempty"`
	RelanceEnabled    bool               `json:"relanceEnabled"`
	RelanceCount      int                `json:"relanceCount"`
	LastRelanceAt     *time.Time         `json:"lastRelanceAt,omitempty"`
	Source            string             `json:"source"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type HistoriqueEntryResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorType string         `json:"actorType"`
	ActorName string         `json:"actorName"`
	Action    string         `json:"action"`
	Detail    *string        `json:"detail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ClientLinkResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RelanceResponse struct {
	RelanceCount int `json:"relanceCount"`
}

// PublicDossierResponse is the client-facing view: no internal flags, no
// relance details, just what the customer needs to follow their job.
type PublicDossierResponse struct {
	ClientFirstName   string             `json:"clientFirstName"`
	ClientLastName    string             `json:"clientLastName"`
	AddressStreet     string             `json:"addressStreet"`
	AddressZipCode    string             `json:"addressZipCode"`
	AddressCity       string             `json:"addressCity"`
	ProblemCategory   string             `json:"problemCategory"`
	Status            string             `json:"status"`
	StatusMeta        StatusMetaResponse `json:"statusMeta"`
	AppointmentStatus string             `json:"appointmentStatus"`
	AppointmentMeta   StatusMetaResponse `json:"appointmentMeta"`
	Slots             []SlotResponse     `json:"slots"`
	CreatedAt         time.Time          `json:"createdAt"`
}

func metaResponse(value string, meta domain.StatusMeta) StatusMetaResponse {
	return StatusMetaResponse{Value: value, Label: meta.Label, Color: meta.Color}
}

func ToSlotResponse(slot repository.Slot) SlotResponse {
	return SlotResponse{
		ID:        slot.ID,
		Date:      slot.SlotDate.Format("2006-01-02"),
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Selected:  slot.Selected,
	}
}

func ToSlotResponses(slots []repository.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, ToSlotResponse(slot))
	}
	return out
}

func ToDossierResponse(d repository.Dossier) DossierResponse {
	return DossierResponse{
		ID:                d.ID,
		ClientFirstName:   d.ClientFirstName,
		ClientLastName:    d.ClientLastName,
		ClientPhone:       d.ClientPhone,
		ClientEmail:       d.ClientEmail,
		AddressStreet:     d.AddressStreet,
		AddressZipCode:    d.AddressZipCode,
		AddressCity:       d.AddressCity,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		ProblemCategory:   d.ProblemCategory,
		UrgencyLevel:      d.UrgencyLevel,
		Description:       d.Description,
		Status:            string(d.Status),
		StatusMeta:        metaResponse(string(d.Status), domain.MetaFor(d.Status)),
		AppointmentStatus: string(d.AppointmentStatus),
		AppointmentMeta:   metaResponse(string(d.AppointmentStatus), domain.AppointmentMetaFor(d.AppointmentStatus)),
		StatusChangedAt:   d.StatusChangedAt,
		SelectedSlotID:    d.SelectedSlotID,
		RelanceEnabled:    d.RelanceEnabled,
		RelanceCount:      d.RelanceCount,
		LastRelanceAt:     d.LastRelanceAt,
		Source:            d.Source,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func ToDossierResponses(items []repository.Dossier) []DossierResponse {
	out := make([]DossierResponse, 0, len(items))
	for _, d := range items {
		out = append(out, ToDossierResponse(d))
	}
	return out
}

func ToHistoriqueResponses(entries []repository.HistoriqueEntry) []HistoriqueEntryResponse {
	out := make([]HistoriqueEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoriqueEntryResponse{
			ID:        e.ID,
			ActorType: e.ActorType,
			ActorName: e.ActorName,
			Action:    e.Action,
			Detail:    e.Detail,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func ToPublicDossierResponse(d repository.Dossier, slots []repository.Slot) PublicDossierResponse {
	return PublicDossierResponse{
		ClientFirstName:   d.ClientFirstName,
		ClientLastName:    d.ClientLastName,
		AddressStreet:     d.AddressStreet,
		AddressZipCode:    d.AddressZipCode,
		AddressCity:       d.AddressCity,
		ProblemCategory:   d.ProblemCategory,
		Status:            string(d.Status),
		StatusMeta:        metaResponse(string(d.Status), domain.MetaFor(d.Status)),
		AppointmentStatus: string(d.AppointmentStatus),
		AppointmentMeta:   metaResponse(string(d.AppointmentStatus), domain.AppointmentMetaFor(d.AppointmentStatus)),
		Slots:             ToSlotResponses(slots),
		CreatedAt:         d.CreatedAt,
	}
}

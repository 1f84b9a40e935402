package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"plombipro_backend/internal/clientaccess"
	"plombipro_backend/internal/dossiers/domain"
	"plombipro_backend/internal/dossiers/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/phone"
)

const publicTokenBytes = 32

// Repo is the persistence surface the service needs. Satisfied by
// *repository.Repository; tests substitute a fake.
type Repo interface {
	Create(ctx context.Context, params repository.CreateDossierParams) (repository.Dossier, error)
	GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Dossier, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Dossier, error)
	Update(ctx context.Context, id uuid.UUID, userID uuid.UUID, params repository.UpdateDossierParams) (repository.Dossier, error)
	SetStatus(ctx context.Context, id uuid.UUID, userID uuid.UUID, status domain.Status) error
	SetAppointmentStatus(ctx context.Context, id uuid.UUID, userID uuid.UUID, status domain.AppointmentStatus) error
	SetSelectedSlot(ctx context.Context, id uuid.UUID, slotID uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	SetRelanceEnabled(ctx context.Context, id uuid.UUID, userID uuid.UUID, enabled bool) error
	IncrementRelance(ctx context.Context, id uuid.UUID, userID uuid.UUID) (int, error)
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.Status]int, error)
	CreateHistoriqueEntry(ctx context.Context, params repository.CreateHistoriqueParams) (repository.HistoriqueEntry, error)
	ListHistorique(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.HistoriqueEntry, error)
	GetByPublicToken(ctx context.Context, tok string) (repository.Dossier, error)
	SetPublicToken(ctx context.Context, id uuid.UUID, userID uuid.UUID, tok string, expiresAt time.Time) error
	ReplaceSlots(ctx context.Context, dossierID uuid.UUID, slots []repository.CreateSlotParams) ([]repository.Slot, error)
	ListSlots(ctx context.Context, dossierID uuid.UUID) ([]repository.Slot, error)
	GetSlot(ctx context.Context, slotID uuid.UUID, dossierID uuid.UUID) (repository.Slot, error)
	MarkSlotSelected(ctx context.Context, slotID uuid.UUID, dossierID uuid.UUID) error
}

// Service provides dossier business logic: lifecycle transitions, the
// historique audit trail, appointment slots and client links.
type Service struct {
	repo     Repo
	eventBus events.Bus
	log      *logger.Logger
	ttls     config.TokenTTLConfig
}

func New(repo Repo, eventBus events.Bus, log *logger.Logger, ttls config.TokenTTLConfig) *Service {
	return &Service{repo: repo, eventBus: eventBus, log: log, ttls: ttls}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("dossier introuvable")
	case errors.Is(err, repository.ErrSlotNotFound):
		return apperr.NotFound("créneau introuvable")
	case errors.Is(err, repository.ErrTokenExpired):
		return apperr.Gone("lien expiré")
	default:
		return err
	}
}

type Actor struct {
	Type string
	Name string
}

func ArtisanActor(name string) Actor { return Actor{Type: repository.ActorArtisan, Name: name} }
func ClientActor(name string) Actor  { return Actor{Type: repository.ActorClient, Name: name} }
func SystemActor() Actor             { return Actor{Type: repository.ActorSystem, Name: "système"} }

type CreateParams struct {
	ClientFirstName string
	ClientLastName  string
	ClientPhone     string
	ClientEmail     *string
	AddressStreet   string
	AddressZipCode  string
	AddressCity     string
	Latitude        *float64
	Longitude       *float64
	ProblemCategory string
	UrgencyLevel    string
	Description     *string
	Source          string
}

// Create inserts the dossier, issues its client link, and writes the first
// historique entry.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (repository.Dossier, error) {
	d, _, err := s.create(ctx, userID, params, ArtisanActor(""))
	return d, err
}

// CreateFromIntake records a request submitted by the client through the
// artisan's public intake link. The historique actor is the client, and the
// suivi token is returned so the submitting client gets their link right
// away rather than only by email.
func (s *Service) CreateFromIntake(ctx context.Context, artisanID uuid.UUID, params CreateParams) (repository.Dossier, string, error) {
	params.Source = "client_link"
	actor := ClientActor(strings.TrimSpace(params.ClientFirstName + " " + params.ClientLastName))
	d, tok, err := s.create(ctx, artisanID, params, actor)
	if errors.Is(err, repository.ErrArtisanNotFound) {
		return repository.Dossier{}, "", apperr.NotFound("artisan introuvable")
	}
	return d, tok, err
}

func (s *Service) create(ctx context.Context, userID uuid.UUID, params CreateParams, actor Actor) (repository.Dossier, string, error) {
	normalized := phone.NormalizeE164(params.ClientPhone)
	if normalized == "" {
		return repository.Dossier{}, "", apperr.Validation("numéro de téléphone requis")
	}

	source := params.Source
	if source == "" {
		source = "manual"
	}

	d, err := s.repo.Create(ctx, repository.CreateDossierParams{
		UserID:          userID,
		ClientFirstName: params.ClientFirstName,
		ClientLastName:  params.ClientLastName,
		ClientPhone:     normalized,
		ClientEmail:     params.ClientEmail,
		AddressStreet:   params.AddressStreet,
		AddressZipCode:  params.AddressZipCode,
		AddressCity:     params.AddressCity,
		Latitude:        params.Latitude,
		Longitude:       params.Longitude,
		ProblemCategory: params.ProblemCategory,
		UrgencyLevel:    params.UrgencyLevel,
		Description:     params.Description,
		Source:          source,
	})
	if err != nil {
		return repository.Dossier{}, "", err
	}

	publicToken, err := s.issueClientLink(ctx, d.ID, userID)
	if err != nil {
		return repository.Dossier{}, "", err
	}

	if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: d.ID,
		UserID:    userID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionDossierCreated,
		Detail:    repository.TruncateDetail(fmt.Sprintf("Dossier créé (%s)", source), repository.HistoriqueDetailMaxLen),
	}); err != nil {
		return repository.Dossier{}, "", err
	}

	s.eventBus.Publish(ctx, events.DossierCreated{
		BaseEvent:   events.NewBaseEvent(),
		DossierID:   d.ID,
		UserID:      userID,
		Source:      source,
		ClientName:  d.ClientFirstName + " " + d.ClientLastName,
		ClientPhone: d.ClientPhone,
		ClientEmail: emailOrEmpty(d.ClientEmail),
		Category:    d.ProblemCategory,
		Urgency:     d.UrgencyLevel,
		PublicToken: publicToken,
	})

	return d, publicToken, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, userID uuid.UUID) (repository.Dossier, error) {
	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Dossier, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, userID uuid.UUID, params repository.UpdateDossierParams, actor Actor) (repository.Dossier, error) {
	if params.ClientPhone != "" {
		params.ClientPhone = phone.NormalizeE164(params.ClientPhone)
	}

	d, err := s.repo.Update(ctx, id, userID, params)
	if err != nil {
		return repository.Dossier{}, mapRepoErr(err)
	}

	if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: id,
		UserID:    userID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionDossierUpdated,
	}); err != nil {
		return repository.Dossier{}, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID, actor Actor) error {
	if err := s.repo.SoftDelete(ctx, id, userID); err != nil {
		return mapRepoErr(err)
	}
	_, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: id,
		UserID:    userID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionDossierDeleted,
	})
	return err
}

func (s *Service) Historique(ctx context.Context, dossierID uuid.UUID, userID uuid.UUID) ([]repository.HistoriqueEntry, error) {
	if _, err := s.repo.GetByID(ctx, dossierID, userID); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.repo.ListHistorique(ctx, dossierID, userID)
}

// DashboardCounters returns per-status dossier counts with a_qualifier folded
// into the nouveau bucket, matching the dashboard display.
func (s *Service) DashboardCounters(ctx context.Context, userID uuid.UUID) (map[domain.Status]int, error) {
	raw, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	counters := make(map[domain.Status]int, len(raw))
	for status, n := range raw {
		counters[domain.DashboardBucket(status)] += n
	}
	return counters, nil
}

func (s *Service) issueClientLink(ctx context.Context, id uuid.UUID, userID uuid.UUID) (string, error) {
	tok, err := clientaccess.NewToken(publicTokenBytes)
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(s.ttls.GetDossierTokenTTL())
	if err := s.repo.SetPublicToken(ctx, id, userID, tok, expiresAt); err != nil {
		return "", mapRepoErr(err)
	}
	return tok, nil
}

// RegenerateClientLink overwrites the dossier's client link and returns the
// new token. The previous token stops working immediately.
func (s *Service) RegenerateClientLink(ctx context.Context, id uuid.UUID, userID uuid.UUID, actor Actor) (string, time.Time, error) {
	if _, err := s.repo.GetByID(ctx, id, userID); err != nil {
		return "", time.Time{}, mapRepoErr(err)
	}
	tok, err := s.issueClientLink(ctx, id, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(s.ttls.GetDossierTokenTTL())

	if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: id,
		UserID:    userID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionClientLinkSent,
	}); err != nil {
		return "", time.Time{}, err
	}
	return tok, expiresAt, nil
}

func (s *Service) SetRelanceEnabled(ctx context.Context, id uuid.UUID, userID uuid.UUID, enabled bool) error {
	return mapOrNil(s.repo.SetRelanceEnabled(ctx, id, userID, enabled))
}

// SendRelance counts the follow-up against the dossier before any delivery
// attempt: relance_count and last_relance_at reflect attempts, and a failed
// email never rolls them back. Delivery itself happens asynchronously in the
// notification module.
func (s *Service) SendRelance(ctx context.Context, id uuid.UUID, userID uuid.UUID, actor Actor) (int, error) {
	d, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	if d.Status != domain.StatusDevisEnvoye {
		return 0, apperr.Conflict("une relance ne peut être envoyée que pour un devis en attente")
	}

	count, err := s.repo.IncrementRelance(ctx, id, userID)
	if err != nil {
		return 0, mapRepoErr(err)
	}

	if _, err := s.repo.CreateHistoriqueEntry(ctx, repository.CreateHistoriqueParams{
		DossierID: id,
		UserID:    userID,
		ActorType: actor.Type,
		ActorName: actor.Name,
		Action:    repository.ActionRelanceSent,
		Detail:    repository.TruncateDetail(fmt.Sprintf("Relance n°%d", count), repository.HistoriqueDetailMaxLen),
	}); err != nil {
		return 0, err
	}

	s.eventBus.Publish(ctx, events.RelanceSent{
		BaseEvent:    events.NewBaseEvent(),
		DossierID:    id,
		UserID:       userID,
		RelanceCount: count,
		ClientName:   d.ClientFirstName + " " + d.ClientLastName,
		ClientEmail:  emailOrEmpty(d.ClientEmail),
		PublicToken:  stringOrEmpty(d.PublicToken),
	})
	return count, nil
}

func emailOrEmpty(email *string) string {
	if email == nil {
		return ""
	}
	return *email
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func mapOrNil(err error) error {
	if err == nil {
		return nil
	}
	return mapRepoErr(err)
}

// Package service implements artisan account management: registration,
// credential checks, access token issuance, and profile updates.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"plombipro_backend/internal/auth/password"
	"plombipro_backend/internal/auth/repository"
	"plombipro_backend/internal/events"
	"plombipro_backend/platform/apperr"
	"plombipro_backend/platform/config"
	"plombipro_backend/platform/logger"
	"plombipro_backend/platform/phone"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Repo interface {
	CreateUser(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params repository.UpdateProfileParams) (repository.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

type Service struct {
	repo     Repo
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo Repo, cfg config.AuthServiceConfig, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, eventBus: eventBus, log: log}
}

type RegisterParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	CompanyName string
}

// Register creates the artisan account and returns a signed access token.
func (s *Service) Register(ctx context.Context, params RegisterParams) (repository.User, string, error) {
	hash, err := password.Hash(params.Password)
	if err != nil {
		return repository.User{}, "", err
	}

	user, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: hash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        phone.NormalizeE164(params.Phone),
		CompanyName:  params.CompanyName,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return repository.User{}, "", apperr.Conflict("un compte existe déjà avec cet email")
		}
		return repository.User{}, "", err
	}

	s.eventBus.Publish(ctx, events.UserRegistered{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
	})
	s.log.Info("user registered", "user_id", user.ID)

	token, err := s.signAccessToken(user.ID)
	if err != nil {
		return repository.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (repository.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, "", apperr.Unauthorized("identifiants invalides")
		}
		return repository.User{}, "", err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return repository.User{}, "", apperr.Unauthorized("identifiants invalides")
	}

	token, err := s.signAccessToken(user.ID)
	if err != nil {
		return repository.User{}, "", err
	}
	return user, token, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("compte introuvable")
	}
	return user, err
}

type UpdateProfileParams struct {
	FirstName      string
	LastName       string
	Phone          string
	CompanyName    string
	CompanyAddress string
	CompanyZipCode string
	CompanyCity    string
	SIRET          string
	VATNumber      string
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (repository.User, error) {
	user, err := s.repo.UpdateProfile(ctx, userID, repository.UpdateProfileParams{
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		Phone:          phone.NormalizeE164(params.Phone),
		CompanyName:    params.CompanyName,
		CompanyAddress: params.CompanyAddress,
		CompanyZipCode: params.CompanyZipCode,
		CompanyCity:    params.CompanyCity,
		SIRET:          params.SIRET,
		VATNumber:      params.VATNumber,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("compte introuvable")
	}
	return user, err
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("compte introuvable")
		}
		return err
	}
	if err := password.Compare(user.PasswordHash, current); err != nil {
		return apperr.Unauthorized("mot de passe actuel incorrect")
	}
	hash, err := password.Hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

func (s *Service) signAccessToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

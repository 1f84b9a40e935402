package transport

import (
	"time"

	"plombipro_backend/internal/auth/repository"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	CompanyName string `json:"companyName" validate:"omitempty,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Phone          string `json:"phone" validate:"omitempty,max=30"`
	CompanyName    string `json:"companyName" validate:"omitempty,max=200"`
	CompanyAddress string `json:"companyAddress" validate:"omitempty,max=300"`
	CompanyZipCode string `json:"companyZipCode" validate:"omitempty,max=10"`
	CompanyCity    string `json:"companyCity" validate:"omitempty,max=100"`
	SIRET          string `json:"siret" validate:"omitempty,len=14,numeric"`
	VATNumber      string `json:"vatNumber" validate:"omitempty,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Phone          string    `json:"phone"`
	CompanyName    string    `json:"companyName"`
	CompanyAddress string    `json:"companyAddress"`
	CompanyZipCode string    `json:"companyZipCode"`
	CompanyCity    string    `json:"companyCity"`
	SIRET          string    `json:"siret"`
	VATNumber      string    `json:"vatNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

func ToUserResponse(user repository.User) UserResponse {
	return UserResponse{
		ID:             user.ID.String(),
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Phone:          user.Phone,
		CompanyName:    user.CompanyName,
		CompanyAddress: user.CompanyAddress,
		CompanyZipCode: user.CompanyZipCode,
		CompanyCity:    user.CompanyCity,
		SIRET:          user.SIRET,
		VATNumber:      user.VATNumber,
		CreatedAt:      user.CreatedAt,
	}
}

func ToAuthResponse(accessToken string, user repository.User) AuthResponse {
	return AuthResponse{
		AccessToken: accessToken,
		User:        ToUserResponse(user),
	}
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// User is an artisan account. The company fields feed the billing snapshot
// frozen onto invoices at creation time.
type User struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	CompanyName    string
	CompanyAddress string
	CompanyZipCode string
	CompanyCity    string
	SIRET          string
	VATNumber      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const userSelectCols = `
	id, email, password_hash, first_name, last_name, phone,
	company_name, company_address, company_zip_code, company_city,
	siret, vat_number, created_at, updated_at`

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	CompanyName  string
}

func (r *Repository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, company_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING`+userSelectCols,
		params.Email, params.PasswordHash, params.FirstName, params.LastName,
		params.Phone, params.CompanyName,
	).Scan(scanTargets(&user)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT`+userSelectCols+`
		FROM users WHERE email = $1
	`, email).Scan(scanTargets(&user)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (r *Repository) GetByID(ctx context.Context, userID uuid.UUID) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT`+userSelectCols+`
		FROM users WHERE id = $1
	`, userID).Scan(scanTargets(&user)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
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

func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			first_name = $2, last_name = $3, phone = $4,
			company_name = $5, company_address = $6, company_zip_code = $7,
			company_city = $8, siret = $9, vat_number = $10,
			updated_at = now()
		WHERE id = $1
		RETURNING`+userSelectCols,
		userID, params.FirstName, params.LastName, params.Phone,
		params.CompanyName, params.CompanyAddress, params.CompanyZipCode,
		params.CompanyCity, params.SIRET, params.VATNumber,
	).Scan(scanTargets(&user)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTargets(u *User) []any {
	return []any{
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.CompanyName, &u.CompanyAddress, &u.CompanyZipCode, &u.CompanyCity,
		&u.SIRET, &u.VATNumber, &u.CreatedAt, &u.UpdatedAt,
	}
}

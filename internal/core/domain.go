package core

import (
	"errors"
	"strings"
	"time"
)

const DefaultCurrency = "USD"

type (
	// User is an account holder. PasswordHash never leaves the storage and
	// auth layers.
	User struct {
		ID                int64
		Username          string
		Email             string
		PasswordHash      string
		ProfilePictureURL string
		Currency          string
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// Category is a per-user label. Uniqueness is case-insensitive per user
	// and enforced by the storage layer.
	Category struct {
		ID        int64
		UserID    int64
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Expense is a single transaction. Category is free text, not a foreign
	// key: deleting a Category record leaves existing expenses untouched.
	Expense struct {
		ID        int64
		UserID    int64
		Amount    Money
		Category  string
		Date      time.Time
		Note      string
		Receipt   string // relative URL path of the uploaded image, if any
		Version   int64  // bumped on every update, carried in sync messages
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrEmptyCategory   = errors.New("category is required")
	ErrInvalidDate     = errors.New("date is required")
	ErrEmptyName       = errors.New("name is required")
	ErrEmptyUsername   = errors.New("username is required")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters long")
)

const (
	MaxNoteLength     = 500
	MaxCategoryLength = 100
	MinPasswordLength = 6
	MaxCurrencyLength = 5
)

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > MaxCategoryLength {
		return errors.New("category too long")
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(e.Note) > MaxNoteLength {
		return errors.New("note too long")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxCategoryLength {
		return errors.New("name too long")
	}
	return nil
}

// ValidateEmail performs the same shape check the original registration form
// relied on: one @, non-empty local part, a dot in the domain.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if strings.ContainsAny(email, " \t\n") {
		return ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooWeak
	}
	return nil
}

func ValidateCurrency(currency string) error {
	currency = strings.TrimSpace(currency)
	if currency == "" || len(currency) > MaxCurrencyLength {
		return errors.New("currency code must be 1-5 characters")
	}
	return nil
}

// PublicUser is the JSON shape of a user exposed by the API. The password
// hash is deliberately absent.
type PublicUser struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	Currency          string `json:"currency"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		ProfilePictureURL: u.ProfilePictureURL,
		Currency:          u.Currency,
	}
}

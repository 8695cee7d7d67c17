package validator

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"
	"seifenshop/internal/usecase"
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^\+?[0-9 /()-]{5,30}$`)
	postalRe  = regexp.MustCompile(`^[0-9A-Za-z -]{3,10}$`)
	countryRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

const minPasswordLength = 8

type customerValidator struct {
	customers repository.CustomerRepository
}

// Usecaseは interface を依存注入
func NewCustomerValidator(customers repository.CustomerRepository) usecase.CustomerValidator {
	return &customerValidator{customers: customers}
}

func invalid(msg string) error {
	return usecase.NewHTTPError(http.StatusBadRequest, msg)
}

// サインアップの入力を検証
func (v *customerValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	email := strings.TrimSpace(in.Email)

	// 必須チェック
	if email == "" || in.Password == "" {
		return invalid("email and password required")
	}

	// email形式
	if !emailRe.MatchString(email) || len(email) > 255 {
		return invalid("invalid email")
	}

	if len(in.Password) < minPasswordLength {
		return invalid("password too short")
	}
	if len(in.Password) > 72 {
		return invalid("password too long")
	}
	if len(in.FirstName) > 100 || len(in.LastName) > 100 {
		return invalid("name too long")
	}
	if err := validatePhone(in.Phone); err != nil {
		return err
	}
	if err := validateAddress(in.Address); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	_, err := v.customers.FindByEmail(ctx, email)
	if err == nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already used")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return usecase.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}

	return nil
}

// ログインの入力を検証
func (v *customerValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return invalid("email and password required")
	}
	if !emailRe.MatchString(email) {
		return invalid("invalid email")
	}

	return nil
}

// プロフィール変更の入力を検証
func (v *customerValidator) ValidateProfile(ctx context.Context, in usecase.ProfileInput) error {
	if in.FirstName != nil && len(*in.FirstName) > 100 {
		return invalid("name too long")
	}
	if in.LastName != nil && len(*in.LastName) > 100 {
		return invalid("name too long")
	}
	if in.Phone != nil {
		if err := validatePhone(*in.Phone); err != nil {
			return err
		}
	}
	if in.Address != nil {
		if err := validateAddress(*in.Address); err != nil {
			return err
		}
	}
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return invalid("current password required")
		}
		if len(in.NewPassword) < minPasswordLength {
			return invalid("password too short")
		}
		if len(in.NewPassword) > 72 {
			return invalid("password too long")
		}
	}
	return nil
}

func validatePhone(s string) error {
	s = strings.TrimSpace(s)
	if s != "" && !phoneRe.MatchString(s) {
		return invalid("invalid phone")
	}
	return nil
}

// 住所は空でもよい（注文時に必要になる）
func validateAddress(a model.Address) error {
	if len(a.Name) > 255 || len(a.Street) > 255 || len(a.City) > 255 {
		return invalid("address too long")
	}
	if pc := strings.TrimSpace(a.PostalCode); pc != "" && !postalRe.MatchString(pc) {
		return invalid("invalid postal code")
	}
	if a.Country != "" && !countryRe.MatchString(a.Country) {
		return invalid("country must be ISO 3166-1 alpha-2")
	}
	return nil
}

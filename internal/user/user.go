// Package user defines the user model: an internal account bound to exactly
// one externally verified identity subject.
package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
)

// User represents a registered system user.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Subject is the identity subject taken from a verified bearer token.
	// At most one user exists per subject.
	Subject string `json:"subject" validate:"required,notblank"`

	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name" validate:"required,notblank"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration cannot fail for a well-formed tag name.
	_ = v.RegisterValidation("notblank", func(fieldLevel validator.FieldLevel) bool {
		return strings.TrimSpace(fieldLevel.Field().String()) != ""
	})

	return v
}

// New builds a user for the given subject and checks its invariants.
func New(subject, email, name string) (*User, error) {
	usr := &User{
		Subject: strings.TrimSpace(subject),
		Email:   strings.TrimSpace(email),
		Name:    strings.TrimSpace(name),
	}
	if err := usr.Validate(); err != nil {
		return nil, err
	}

	return usr, nil
}

// Validate reports an apperror.ErrInvalidInput failure when the user
// breaks one of its invariants.
func (u *User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return apperror.Wrap(apperror.KindInvalidInput, "Invalid user", err)
	}

	return nil
}

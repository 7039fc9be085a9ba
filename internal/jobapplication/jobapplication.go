// Package jobapplication holds the job application entity together with the
// rules that keep it consistent: field invariants, patch semantics and the
// application date side effect of status transitions.
package jobapplication

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

// JobApplication is a single application record owned by one user.
type JobApplication struct {
	ID string `json:"id"`

	// UserID references the owning user. It never changes after creation.
	UserID string `json:"user_id" validate:"required"`

	// OwnerSubject is the identity subject of the owning user. Stores fill it
	// in when loading a record, it is not persisted on its own.
	OwnerSubject string `json:"-"`

	JobTitle    string `json:"job_title" validate:"required,notblank,min=2,max=100"`
	CompanyName string `json:"company_name" validate:"required,notblank,min=2,max=50"`
	Location    string `json:"location,omitempty" validate:"max=100"`
	Status      Status `json:"status" validate:"required,jobstatus"`
	JobPostURL  string `json:"job_post_url" validate:"required,url"`

	// ResumeKey and CoverLetterKey are object storage keys, empty when no
	// file was attached.
	ResumeKey      string `json:"resume_key,omitempty"`
	CoverLetterKey string `json:"cover_letter_key,omitempty"`

	// ApplicationDate is set once, on the first status other than SAVED.
	ApplicationDate *time.Time `json:"application_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields are the user supplied values of a new application.
type Fields struct {
	JobTitle    string
	CompanyName string
	Location    string
	Status      string
	JobPostURL  string
}

// Patch carries the optional fields of a partial update. A nil field is
// left untouched.
type Patch struct {
	JobTitle    *string
	CompanyName *string
	Location    *string
	Status      *string
	JobPostURL  *string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fieldLevel validator.FieldLevel) bool {
		return strings.TrimSpace(fieldLevel.Field().String()) != ""
	})
	_ = v.RegisterValidation("jobstatus", func(fieldLevel validator.FieldLevel) bool {
		return Status(fieldLevel.Field().String()).IsValid()
	})

	return v
}

// New builds an application owned by owner. The application date is set to
// now unless the status is SAVED.
func New(owner *user.User, fields Fields, now time.Time) (*JobApplication, error) {
	if owner == nil || owner.ID == "" {
		return nil, apperror.New(apperror.KindInvalidInput, "Application owner is required")
	}

	status, err := ParseStatus(fields.Status)
	if err != nil {
		return nil, err
	}

	app := &JobApplication{
		UserID:       owner.ID,
		OwnerSubject: owner.Subject,
		JobTitle:     fields.JobTitle,
		CompanyName:  fields.CompanyName,
		Location:     fields.Location,
		Status:       status,
		JobPostURL:   fields.JobPostURL,
	}
	if status.IsApplied() {
		appliedAt := now
		app.ApplicationDate = &appliedAt
	}

	if err := app.Validate(); err != nil {
		return nil, err
	}

	return app, nil
}

// Validate reports an apperror.ErrInvalidInput failure when the record
// breaks one of its invariants.
func (a *JobApplication) Validate() error {
	if err := validate.Struct(a); err != nil {
		return apperror.Wrap(apperror.KindInvalidInput, "Invalid job application", err)
	}

	return nil
}

// IsOwnedBy reports whether usr is the owner of the application.
func (a *JobApplication) IsOwnedBy(usr *user.User) bool {
	return usr != nil && a.OwnerSubject != "" && a.OwnerSubject == usr.Subject
}

// ApplyPatch overwrites every field present in p whose value differs from
// the current one, then checks the invariants. A blank status is ignored.
// The record is left unchanged when an error is returned.
func (a *JobApplication) ApplyPatch(p Patch, now time.Time) error {
	patched := *a

	if p.JobTitle != nil && *p.JobTitle != patched.JobTitle {
		patched.JobTitle = *p.JobTitle
	}

	if p.CompanyName != nil && *p.CompanyName != patched.CompanyName {
		patched.CompanyName = *p.CompanyName
	}

	if p.Location != nil && *p.Location != patched.Location {
		patched.Location = *p.Location
	}

	if p.Status != nil && strings.TrimSpace(*p.Status) != "" {
		status, err := ParseStatus(*p.Status)
		if err != nil {
			return err
		}
		patched.TransitionTo(status, now)
	}

	if p.JobPostURL != nil && *p.JobPostURL != patched.JobPostURL {
		patched.JobPostURL = *p.JobPostURL
	}

	if err := patched.Validate(); err != nil {
		return err
	}

	*a = patched

	return nil
}

// TransitionTo moves the application to status. Leaving SAVED for the first
// time stamps the application date, later transitions keep it.
func (a *JobApplication) TransitionTo(status Status, now time.Time) {
	if status == a.Status {
		return
	}

	a.Status = status
	if status.IsApplied() && a.ApplicationDate == nil {
		appliedAt := now
		a.ApplicationDate = &appliedAt
	}
}

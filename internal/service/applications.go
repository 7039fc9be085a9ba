package service

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

// ListApplications returns the caller's applications in store order.
// An empty result is reported as apperror.ErrNoApplicationsFound.
func (s *Service) ListApplications(ctx context.Context, subject string) (models.JobApplicationViews, error) {
	var apps []*jobapplication.JobApplication

	err := s.inTransaction(func(tx *sql.Tx) error {
		usr, err := s.resolveUser(ctx, subject, tx)
		if err != nil {
			return err
		}

		apps, err = s.db.GetUserApplications(ctx, usr.ID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(apps) == 0 {
		return nil, apperror.ErrNoApplicationsFound
	}

	result := make(models.JobApplicationViews, 0, len(apps))
	for _, app := range apps {
		result = append(result, s.toView(app))
	}

	return result, nil
}

// GetApplication returns one of the caller's applications.
func (s *Service) GetApplication(
	ctx context.Context,
	subject string,
	applicationID string,
) (*models.JobApplicationView, error) {
	var app *jobapplication.JobApplication

	err := s.inTransaction(func(tx *sql.Tx) error {
		var err error
		_, app, err = s.loadOwned(ctx, subject, applicationID, tx, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := s.toView(app)
	return &view, nil
}

// CreateApplication stores a new application owned by the caller. Both
// attachments are validated before anything is uploaded or persisted.
func (s *Service) CreateApplication(
	ctx context.Context,
	subject string,
	request models.CreateJobApplicationRequest,
) (*models.JobApplicationView, error) {
	var app *jobapplication.JobApplication

	err := s.inTransaction(func(tx *sql.Tx) error {
		usr, err := s.resolveUser(ctx, subject, tx)
		if err != nil {
			return err
		}

		now := s.now()
		app, err = jobapplication.New(
			usr,
			jobapplication.Fields{
				JobTitle:    request.JobTitle,
				CompanyName: request.CompanyName,
				Location:    request.Location,
				Status:      request.Status,
				JobPostURL:  request.JobPostURL,
			},
			now,
		)
		if err != nil {
			return err
		}

		if err := s.attachFiles(ctx, usr, app, request.Resume, request.CoverLetter); err != nil {
			return err
		}

		app.CreatedAt = now
		app.UpdatedAt = now

		app.ID, err = s.db.InsertApplication(ctx, app, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationCreated(string(app.Status))

	view := s.toView(app)
	return &view, nil
}

// UpdateApplication applies a partial update to one of the caller's
// applications. The updated timestamp is refreshed even when no field changes.
func (s *Service) UpdateApplication(
	ctx context.Context,
	subject string,
	applicationID string,
	request models.UpdateJobApplicationRequest,
) (*models.JobApplicationView, error) {
	var (
		app            *jobapplication.JobApplication
		previousStatus jobapplication.Status
	)

	err := s.inTransaction(func(tx *sql.Tx) error {
		var (
			usr *user.User
			err error
		)
		usr, app, err = s.loadOwned(ctx, subject, applicationID, tx, true)
		if err != nil {
			return err
		}
		previousStatus = app.Status

		now := s.now()
		err = app.ApplyPatch(
			jobapplication.Patch{
				JobTitle:    request.JobTitle,
				CompanyName: request.CompanyName,
				Location:    request.Location,
				Status:      request.Status,
				JobPostURL:  request.JobPostURL,
			},
			now,
		)
		if err != nil {
			return err
		}

		if err := s.attachFiles(ctx, usr, app, request.Resume, request.CoverLetter); err != nil {
			return err
		}

		app.UpdatedAt = now

		return s.db.UpdateApplication(ctx, app, tx)
	})
	if err != nil {
		return nil, err
	}

	if app.Status != previousStatus {
		s.metrics.StatusChanged(string(previousStatus), string(app.Status))
	}

	view := s.toView(app)
	return &view, nil
}

// DeleteApplication permanently removes one of the caller's applications.
func (s *Service) DeleteApplication(ctx context.Context, subject string, applicationID string) error {
	return s.inTransaction(func(tx *sql.Tx) error {
		_, app, err := s.loadOwned(ctx, subject, applicationID, tx, true)
		if err != nil {
			return err
		}

		return s.db.DeleteApplication(ctx, app.ID, tx)
	})
}

// loadOwned resolves the caller, then the application, then checks that the
// caller owns it. A missing application wins over a foreign one.
func (s *Service) loadOwned(
	ctx context.Context,
	subject string,
	applicationID string,
	tx *sql.Tx,
	forUpdate bool,
) (*user.User, *jobapplication.JobApplication, error) {
	usr, err := s.resolveUser(ctx, subject, tx)
	if err != nil {
		return nil, nil, err
	}

	load := s.db.GetApplicationByID
	if forUpdate {
		load = s.db.GetApplicationByIDForUpdate
	}

	app, found, err := load(ctx, applicationID, tx)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, apperror.ErrApplicationNotFound
	}

	if !app.IsOwnedBy(usr) {
		return nil, nil, apperror.ErrForbiddenApplicationAccess
	}

	return usr, app, nil
}

func (s *Service) toView(app *jobapplication.JobApplication) models.JobApplicationView {
	view := models.JobApplicationView{
		ID:              app.ID,
		JobTitle:        app.JobTitle,
		CompanyName:     app.CompanyName,
		Status:          string(app.Status),
		JobPostURL:      app.JobPostURL,
		ResumeURL:       s.fileURL(app.ResumeKey),
		CoverLetterURL:  s.fileURL(app.CoverLetterKey),
		ApplicationDate: app.ApplicationDate,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
	if app.Location != "" {
		location := app.Location
		view.Location = &location
	}

	return view
}

package service

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

// RegisterUser binds a new user to subject. It fails with
// apperror.ErrUserAlreadyExists when the subject is already registered.
func (s *Service) RegisterUser(
	ctx context.Context,
	subject string,
	request models.RegisterUserRequest,
) (*models.UserView, error) {
	usr, err := user.New(subject, request.Email, request.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	err = s.inTransaction(func(tx *sql.Tx) error {
		_, exists, err := s.db.GetUserBySubject(ctx, usr.Subject, tx)
		if err != nil {
			return err
		}
		if exists {
			return apperror.ErrUserAlreadyExists
		}

		usr.ID, err = s.db.CreateUser(ctx, usr, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.UserView{
		ID:        usr.ID,
		Email:     usr.Email,
		Name:      usr.Name,
		CreatedAt: usr.CreatedAt,
	}, nil
}

// resolveUser maps a verified subject to its user.
func (s *Service) resolveUser(ctx context.Context, subject string, tx *sql.Tx) (*user.User, error) {
	usr, found, err := s.db.GetUserBySubject(ctx, subject, tx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.ErrUserNotFound
	}

	return usr, nil
}

// GetInternalStats returns the number of users and applications.
func (s *Service) GetInternalStats(ctx context.Context) (*models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return nil, err
	}

	applications, err := s.db.GetNumberOfApplications(ctx)
	if err != nil {
		return nil, err
	}

	return &models.InternalStatsResponse{
		Users:        users,
		Applications: applications,
	}, nil
}

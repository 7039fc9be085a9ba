package models

import (
	"io"
	"time"
)

// JobApplicationView is the external representation of a job application.
type JobApplicationView struct {
	ID              string     `json:"id"`
	JobTitle        string     `json:"job_title"`
	CompanyName     string     `json:"company_name"`
	Location        *string    `json:"location"`
	Status          string     `json:"status"`
	JobPostURL      string     `json:"job_post_url"`
	ResumeURL       *string    `json:"resume_url"`
	CoverLetterURL  *string    `json:"cover_letter_url"`
	ApplicationDate *time.Time `json:"application_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type JobApplicationViews []JobApplicationView

// Upload is a file attached to a request.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// IsEmpty reports whether nothing was attached. An attached zero-length
// file counts as nothing.
func (u *Upload) IsEmpty() bool {
	return u == nil || u.Size == 0
}

type CreateJobApplicationRequest struct {
	JobTitle    string
	CompanyName string
	Location    string
	Status      string
	JobPostURL  string
	Resume      *Upload
	CoverLetter *Upload
}

// UpdateJobApplicationRequest is a partial update: nil fields are not changed.
type UpdateJobApplicationRequest struct {
	JobTitle    *string `json:"job_title"`
	CompanyName *string `json:"company_name"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
	JobPostURL  *string `json:"job_post_url"`
	Resume      *Upload `json:"-"`
	CoverLetter *Upload `json:"-"`
}

type RegisterUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the uniform body of every failed request.
type ErrorResponse struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type InternalStatsResponse struct {
	Users        int64 `json:"users"`
	Applications int64 `json:"applications"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

const (
	ObjectStorageTypeS3   = "s3"
	ObjectStorageTypeDisk = "disk"
)

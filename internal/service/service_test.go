package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/db/memorystorage"
	"github.com/patric-chuzhbe/jobtracker/internal/mockstorage"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

const (
	ownerSubject    = "auth0|abc"
	strangerSubject = "auth0|other"
	fileURLBase     = "http://localhost:8080"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	service *Service
	clock   *fakeClock
	objects *mockstorage.ObjectStoreMock
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	objects := &mockstorage.ObjectStoreMock{}
	objects.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	return &testEnv{
		service: New(db, objects, fileURLBase, WithClock(clock)),
		clock:   clock,
		objects: objects,
	}
}

func (e *testEnv) register(t *testing.T, subject, email string) {
	t.Helper()

	_, err := e.service.RegisterUser(
		context.Background(),
		subject,
		models.RegisterUserRequest{Email: email, Name: "Ann"},
	)
	require.NoError(t, err)
}

func createRequest(status string) models.CreateJobApplicationRequest {
	return models.CreateJobApplicationRequest{
		JobTitle:    "SWE",
		CompanyName: "Acme",
		Status:      status,
		JobPostURL:  "https://acme.com/job",
	}
}

func upload(name string, content string) *models.Upload {
	return &models.Upload{
		Filename: name,
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func ptr(value string) *string {
	return &value
}

func TestRegisterUser(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	view, err := env.service.RegisterUser(ctx, ownerSubject, models.RegisterUserRequest{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "a@x.com", view.Email)
	assert.Equal(t, env.clock.now, view.CreatedAt)

	_, err = env.service.RegisterUser(ctx, ownerSubject, models.RegisterUserRequest{Email: "b@x.com", Name: "Bob"})
	assert.ErrorIs(t, err, apperror.ErrUserAlreadyExists)

	_, err = env.service.RegisterUser(ctx, strangerSubject, models.RegisterUserRequest{Email: "not-an-email", Name: "Bob"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRegisterUserNeverCreatesDuplicate(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("BeginTransaction").Return(nil, nil)
	db.On("RollbackTransaction", mock.Anything).Return(nil)
	db.On("GetUserBySubject", mock.Anything, ownerSubject, mock.Anything).
		Return(&user.User{ID: "u1", Subject: ownerSubject}, true, nil)

	theService := New(db, &mockstorage.ObjectStoreMock{}, fileURLBase)

	_, err := theService.RegisterUser(
		context.Background(),
		ownerSubject,
		models.RegisterUserRequest{Email: "a@x.com", Name: "Ann"},
	)
	assert.ErrorIs(t, err, apperror.ErrUserAlreadyExists)
	db.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "CommitTransaction", mock.Anything)
}

func TestUnknownSubjectNeverTouchesApplications(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("BeginTransaction").Return(nil, nil)
	db.On("RollbackTransaction", mock.Anything).Return(nil)
	db.On("GetUserBySubject", mock.Anything, "auth0|ghost", mock.Anything).Return(nil, false, nil)

	objects := &mockstorage.ObjectStoreMock{}
	theService := New(db, objects, fileURLBase)
	ctx := context.Background()

	_, err := theService.ListApplications(ctx, "auth0|ghost")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	_, err = theService.GetApplication(ctx, "auth0|ghost", "some-id")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	_, err = theService.CreateApplication(ctx, "auth0|ghost", createRequest("SAVED"))
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	_, err = theService.UpdateApplication(ctx, "auth0|ghost", "some-id", models.UpdateJobApplicationRequest{})
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	err = theService.DeleteApplication(ctx, "auth0|ghost", "some-id")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	for _, method := range []string{"GetApplicationByID", "GetApplicationByIDForUpdate", "DeleteApplication"} {
		db.AssertNotCalled(t, method, mock.Anything, mock.Anything, mock.Anything)
	}
	db.AssertNotCalled(t, "GetUserApplications", mock.Anything, mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "InsertApplication", mock.Anything, mock.Anything, mock.Anything)
	objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestListApplications(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	_, err := env.service.ListApplications(ctx, ownerSubject)
	assert.ErrorIs(t, err, apperror.ErrNoApplicationsFound)

	first, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)
	second, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("APPLIED"))
	require.NoError(t, err)

	views, err := env.service.ListApplications(ctx, ownerSubject)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, first.ID, views[0].ID)
	assert.Equal(t, second.ID, views[1].ID)
}

func TestCreateApplication(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	saved, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "SAVED", saved.Status)
	assert.Nil(t, saved.ApplicationDate)
	assert.Nil(t, saved.Location)
	assert.Nil(t, saved.ResumeURL)
	assert.Equal(t, env.clock.now, saved.CreatedAt)

	applied, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("OFFER"))
	require.NoError(t, err)
	require.NotNil(t, applied.ApplicationDate)
	assert.Equal(t, env.clock.now, *applied.ApplicationDate)

	_, err = env.service.CreateApplication(ctx, ownerSubject, createRequest("GHOSTED"))
	assert.ErrorIs(t, err, apperror.ErrInvalidStatus)

	request := createRequest("SAVED")
	request.JobTitle = " "
	_, err = env.service.CreateApplication(ctx, ownerSubject, request)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCreateApplicationWithFiles(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	request := createRequest("SAVED")
	request.Resume = upload("../../etc/CV.PDF", "resume body")
	request.CoverLetter = upload("letter.docx", "letter body")

	view, err := env.service.CreateApplication(ctx, ownerSubject, request)
	require.NoError(t, err)

	stored, found, err := env.service.db.GetApplicationByID(ctx, view.ID, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "resumes/"+stored.UserID+"/CV.PDF", stored.ResumeKey)
	assert.Equal(t, "cover_letters/"+stored.UserID+"/letter.docx", stored.CoverLetterKey)

	require.NotNil(t, view.ResumeURL)
	assert.Equal(t, fileURLBase+"/file/resumes/"+stored.UserID+"/CV.PDF", *view.ResumeURL)

	env.objects.AssertCalled(t, "Put", mock.Anything, stored.ResumeKey, []byte("resume body"))
	env.objects.AssertCalled(t, "Put", mock.Anything, stored.CoverLetterKey, []byte("letter body"))
}

func TestCreateApplicationEmptyFileIsIgnored(t *testing.T) {
	env := setupService(t)
	env.register(t, ownerSubject, "a@x.com")

	request := createRequest("SAVED")
	request.Resume = upload("cv.pdf", "")

	view, err := env.service.CreateApplication(context.Background(), ownerSubject, request)
	require.NoError(t, err)
	assert.Nil(t, view.ResumeURL)
	env.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateApplicationInvalidFilePersistsNothing(t *testing.T) {
	tests := []struct {
		name        string
		resume      *models.Upload
		coverLetter *models.Upload
	}{
		{
			name:   "executable resume",
			resume: upload("virus.exe", "MZ"),
		},
		{
			name:        "valid resume with invalid cover letter",
			resume:      upload("cv.pdf", "resume"),
			coverLetter: upload("letter", "no extension"),
		},
		{
			name: "oversized resume",
			resume: &models.Upload{
				Filename: "cv.pdf",
				Size:     MaxAttachmentSize + 1,
				Content:  bytes.NewReader(make([]byte, MaxAttachmentSize+1)),
			},
		},
		{
			name: "declared size smaller than content",
			resume: &models.Upload{
				Filename: "cv.txt",
				Size:     10,
				Content:  bytes.NewReader(make([]byte, MaxAttachmentSize+1)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			ctx := context.Background()
			env.register(t, ownerSubject, "a@x.com")

			request := createRequest("APPLIED")
			request.Resume = tt.resume
			request.CoverLetter = tt.coverLetter

			_, err := env.service.CreateApplication(ctx, ownerSubject, request)
			assert.ErrorIs(t, err, apperror.ErrFileNotValid)

			_, err = env.service.ListApplications(ctx, ownerSubject)
			assert.ErrorIs(t, err, apperror.ErrNoApplicationsFound)
			env.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateApplicationUploadFailure(t *testing.T) {
	db, err := memorystorage.New()
	require.NoError(t, err)

	objects := &mockstorage.ObjectStoreMock{}
	objects.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

	theService := New(db, objects, fileURLBase)
	ctx := context.Background()
	_, err = theService.RegisterUser(ctx, ownerSubject, models.RegisterUserRequest{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	request := createRequest("SAVED")
	request.Resume = upload("cv.pdf", "resume")

	_, err = theService.CreateApplication(ctx, ownerSubject, request)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUnknown, apperror.KindOf(err))

	_, err = theService.ListApplications(ctx, ownerSubject)
	assert.ErrorIs(t, err, apperror.ErrNoApplicationsFound)
}

func TestUpdateApplicationDateIsMonotonic(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)
	require.Nil(t, created.ApplicationDate)

	env.clock.advance(time.Hour)
	appliedAt := env.clock.now

	applied, err := env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{Status: ptr("APPLIED")},
	)
	require.NoError(t, err)
	require.NotNil(t, applied.ApplicationDate)
	assert.Equal(t, appliedAt, *applied.ApplicationDate)

	env.clock.advance(time.Hour)

	interview, err := env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{Status: ptr("INTERVIEW")},
	)
	require.NoError(t, err)
	assert.Equal(t, "INTERVIEW", interview.Status)
	assert.Equal(t, appliedAt, *interview.ApplicationDate)

	env.clock.advance(time.Hour)

	back, err := env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{Status: ptr("SAVED")},
	)
	require.NoError(t, err)
	assert.Equal(t, appliedAt, *back.ApplicationDate)

	fetched, err := env.service.GetApplication(ctx, ownerSubject, created.ID)
	require.NoError(t, err)
	assert.Equal(t, appliedAt, *fetched.ApplicationDate)
}

func TestUpdateApplicationIdenticalPayload(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("APPLIED"))
	require.NoError(t, err)

	env.clock.advance(time.Minute)

	updated, err := env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{
			JobTitle:    ptr(created.JobTitle),
			CompanyName: ptr(created.CompanyName),
			Status:      ptr(created.Status),
			JobPostURL:  ptr(created.JobPostURL),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, created.Status, updated.Status)
	assert.Equal(t, *created.ApplicationDate, *updated.ApplicationDate)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, env.clock.now, updated.UpdatedAt)
	assert.NotEqual(t, created.UpdatedAt, updated.UpdatedAt)
}

func TestUpdateApplicationPartial(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)

	updated, err := env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{
			Location: ptr("Berlin"),
			Status:   ptr("  "),
			Resume:   upload("cv.doc", "resume"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "SWE", updated.JobTitle)
	assert.Equal(t, "SAVED", updated.Status)
	require.NotNil(t, updated.Location)
	assert.Equal(t, "Berlin", *updated.Location)
	require.NotNil(t, updated.ResumeURL)

	_, err = env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{JobTitle: ptr("Staff"), Status: ptr("HIRED")},
	)
	assert.ErrorIs(t, err, apperror.ErrInvalidStatus)

	_, err = env.service.UpdateApplication(
		ctx, ownerSubject, created.ID,
		models.UpdateJobApplicationRequest{JobTitle: ptr("Staff"), CoverLetter: upload("letter.exe", "x")},
	)
	assert.ErrorIs(t, err, apperror.ErrFileNotValid)

	fetched, err := env.service.GetApplication(ctx, ownerSubject, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SWE", fetched.JobTitle)
	assert.Nil(t, fetched.CoverLetterURL)
}

func TestUpdateApplicationInvalidFilePersistsNothing(t *testing.T) {
	tests := []struct {
		name        string
		resume      *models.Upload
		coverLetter *models.Upload
	}{
		{
			name:   "executable resume",
			resume: upload("cv.exe", "MZ"),
		},
		{
			name:        "valid resume with invalid cover letter",
			resume:      upload("cv.pdf", "resume"),
			coverLetter: upload("letter.sh", "#!/bin/sh"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			ctx := context.Background()
			env.register(t, ownerSubject, "a@x.com")

			created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
			require.NoError(t, err)

			env.clock.advance(time.Hour)

			_, err = env.service.UpdateApplication(
				ctx, ownerSubject, created.ID,
				models.UpdateJobApplicationRequest{
					JobTitle:    ptr("Staff Engineer"),
					Status:      ptr("APPLIED"),
					Resume:      tt.resume,
					CoverLetter: tt.coverLetter,
				},
			)
			assert.ErrorIs(t, err, apperror.ErrFileNotValid)

			fetched, err := env.service.GetApplication(ctx, ownerSubject, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.JobTitle, fetched.JobTitle)
			assert.Equal(t, "SAVED", fetched.Status)
			assert.Nil(t, fetched.ApplicationDate)
			assert.Nil(t, fetched.ResumeURL)
			assert.Nil(t, fetched.CoverLetterURL)
			assert.Equal(t, created.UpdatedAt, fetched.UpdatedAt)
			env.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOwnershipIsCheckedAfterExistence(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")
	env.register(t, strangerSubject, "b@x.com")

	created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)

	_, err = env.service.GetApplication(ctx, strangerSubject, created.ID)
	assert.ErrorIs(t, err, apperror.ErrForbiddenApplicationAccess)

	_, err = env.service.UpdateApplication(
		ctx, strangerSubject, created.ID,
		models.UpdateJobApplicationRequest{Status: ptr("APPLIED")},
	)
	assert.ErrorIs(t, err, apperror.ErrForbiddenApplicationAccess)

	err = env.service.DeleteApplication(ctx, strangerSubject, created.ID)
	assert.ErrorIs(t, err, apperror.ErrForbiddenApplicationAccess)

	_, err = env.service.GetApplication(ctx, strangerSubject, "missing-id")
	assert.ErrorIs(t, err, apperror.ErrApplicationNotFound)

	fetched, err := env.service.GetApplication(ctx, ownerSubject, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAVED", fetched.Status)
}

func TestDeleteApplication(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")

	created, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteApplication(ctx, ownerSubject, created.ID))

	_, err = env.service.GetApplication(ctx, ownerSubject, created.ID)
	assert.ErrorIs(t, err, apperror.ErrApplicationNotFound)

	err = env.service.DeleteApplication(ctx, ownerSubject, created.ID)
	assert.ErrorIs(t, err, apperror.ErrApplicationNotFound)
}

func TestUploadAndDownloadFile(t *testing.T) {
	objects := &mockstorage.ObjectStoreMock{}
	objects.On("Put", mock.Anything, "notes.txt", []byte("hello")).Return(nil)
	objects.On("Get", mock.Anything, "notes.txt").Return([]byte("hello"), nil)

	db, err := memorystorage.New()
	require.NoError(t, err)
	theService := New(db, objects, fileURLBase)
	ctx := context.Background()

	key, err := theService.UploadFile(ctx, upload("dir/notes.txt", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", key)

	data, err := theService.DownloadFile(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = theService.UploadFile(ctx, upload("empty.txt", ""))
	assert.ErrorIs(t, err, apperror.ErrFileNotValid)
}

func TestGetInternalStats(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	env.register(t, ownerSubject, "a@x.com")
	env.register(t, strangerSubject, "b@x.com")

	_, err := env.service.CreateApplication(ctx, ownerSubject, createRequest("SAVED"))
	require.NoError(t, err)

	stats, err := env.service.GetInternalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.InternalStatsResponse{Users: 2, Applications: 1}, stats)
}

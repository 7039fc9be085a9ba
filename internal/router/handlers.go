package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/auth"
	"github.com/patric-chuzhbe/jobtracker/internal/httpresponse"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
)

// Multipart form field names.
const (
	fieldJobTitle        = "job_title"
	fieldCompanyName     = "company_name"
	fieldLocation        = "location"
	fieldStatus          = "status"
	fieldJobPostURL      = "job_post_url"
	fieldResumeFile      = "resume_file"
	fieldCoverLetterFile = "cover_letter_file"
	fieldFile            = "file"
)

const fileUploadedMessage = "File uploaded"

func (router *Router) getPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (router *Router) getInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusOK, stats)
}

func (router *Router) postUser(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	var registerRequest models.RegisterUserRequest
	if err := json.NewDecoder(request.Body).Decode(&registerRequest); err != nil {
		writeBodyError(response, err)
		return
	}

	userView, err := router.svc.RegisterUser(request.Context(), subject, registerRequest)
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusCreated, userView)
}

func (router *Router) getApplications(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	applications, err := router.svc.ListApplications(request.Context(), subject)
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusOK, applications)
}

func (router *Router) getApplication(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	application, err := router.svc.GetApplication(request.Context(), subject, chi.URLParam(request, "id"))
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusOK, application)
}

func (router *Router) postApplications(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	if err := router.parseMultipartForm(request); err != nil {
		writeBodyError(response, err)
		return
	}
	defer removeMultipartFiles(request)

	resume, err := formUpload(request, fieldResumeFile)
	if err != nil {
		writeBodyError(response, err)
		return
	}
	defer closeUploads(resume)
	coverLetter, err := formUpload(request, fieldCoverLetterFile)
	if err != nil {
		writeBodyError(response, err)
		return
	}
	defer closeUploads(coverLetter)

	application, err := router.svc.CreateApplication(
		request.Context(),
		subject,
		models.CreateJobApplicationRequest{
			JobTitle:    request.PostFormValue(fieldJobTitle),
			CompanyName: request.PostFormValue(fieldCompanyName),
			Location:    request.PostFormValue(fieldLocation),
			Status:      request.PostFormValue(fieldStatus),
			JobPostURL:  request.PostFormValue(fieldJobPostURL),
			Resume:      resume,
			CoverLetter: coverLetter,
		},
	)
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusCreated, application)
}

// patchApplication accepts either a JSON body with the fields to change or a
// multipart form that can also carry new attachments.
func (router *Router) patchApplication(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	var updateRequest models.UpdateJobApplicationRequest

	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := router.parseMultipartForm(request); err != nil {
			writeBodyError(response, err)
			return
		}
		defer removeMultipartFiles(request)
		defer func() {
			closeUploads(updateRequest.Resume, updateRequest.CoverLetter)
		}()

		form := request.MultipartForm
		updateRequest.JobTitle = optionalFormValue(form, fieldJobTitle)
		updateRequest.CompanyName = optionalFormValue(form, fieldCompanyName)
		updateRequest.Location = optionalFormValue(form, fieldLocation)
		updateRequest.Status = optionalFormValue(form, fieldStatus)
		updateRequest.JobPostURL = optionalFormValue(form, fieldJobPostURL)

		var err error
		if updateRequest.Resume, err = formUpload(request, fieldResumeFile); err != nil {
			writeBodyError(response, err)
			return
		}
		if updateRequest.CoverLetter, err = formUpload(request, fieldCoverLetterFile); err != nil {
			writeBodyError(response, err)
			return
		}
	} else if err := json.NewDecoder(request.Body).Decode(&updateRequest); err != nil {
		writeBodyError(response, err)
		return
	}

	application, err := router.svc.UpdateApplication(
		request.Context(),
		subject,
		chi.URLParam(request, "id"),
		updateRequest,
	)
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	httpresponse.WriteJSON(response, http.StatusOK, application)
}

func (router *Router) deleteApplication(response http.ResponseWriter, request *http.Request) {
	subject, ok := requireSubject(response, request)
	if !ok {
		return
	}

	if err := router.svc.DeleteApplication(request.Context(), subject, chi.URLParam(request, "id")); err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

func (router *Router) postFile(response http.ResponseWriter, request *http.Request) {
	if _, ok := requireSubject(response, request); !ok {
		return
	}

	if err := router.parseMultipartForm(request); err != nil {
		writeBodyError(response, err)
		return
	}
	defer removeMultipartFiles(request)

	upload, err := formUpload(request, fieldFile)
	if err != nil {
		writeBodyError(response, err)
		return
	}
	defer closeUploads(upload)

	if _, err := router.svc.UploadFile(request.Context(), upload); err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write([]byte(fileUploadedMessage)); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

func (router *Router) getFile(response http.ResponseWriter, request *http.Request) {
	if _, ok := requireSubject(response, request); !ok {
		return
	}

	key, ok := fileKey(chi.URLParam(request, "*"))
	if !ok {
		httpresponse.WriteErrorStatus(response, http.StatusNotFound, "File not found")
		return
	}

	data, err := router.svc.DownloadFile(request.Context(), key)
	if err != nil {
		httpresponse.WriteError(response, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	response.Header().Set("Content-Type", contentType)
	response.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(data); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}

func requireSubject(response http.ResponseWriter, request *http.Request) (string, bool) {
	subject, ok := auth.SubjectFromContext(request.Context())
	if !ok {
		httpresponse.WriteErrorStatus(response, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}

	return subject, true
}

func (router *Router) parseMultipartForm(request *http.Request) error {
	if err := request.ParseMultipartForm(router.maxRequestBodySize); err != nil {
		return fmt.Errorf("in internal/router/handlers.go/parseMultipartForm(): error while `request.ParseMultipartForm()` calling: %w", err)
	}

	return nil
}

func removeMultipartFiles(request *http.Request) {
	if request.MultipartForm == nil {
		return
	}

	if err := request.MultipartForm.RemoveAll(); err != nil {
		logger.Log.Debugln("Error calling the `request.MultipartForm.RemoveAll()`: ", zap.Error(err))
	}
}

// formUpload returns the file attached under field, or nil when there is none.
func formUpload(request *http.Request, field string) (*models.Upload, error) {
	file, header, err := request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/router/handlers.go/formUpload(): error while `request.FormFile()` calling: %w", err)
	}

	return &models.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, nil
}

func closeUploads(uploads ...*models.Upload) {
	for _, upload := range uploads {
		if upload == nil {
			continue
		}

		closer, ok := upload.Content.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Log.Debugln("Error calling the `closer.Close()`: ", zap.Error(err))
		}
	}
}

func optionalFormValue(form *multipart.Form, field string) *string {
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}

	value := values[0]
	return &value
}

// fileKey rejects keys that are empty or try to leave the store namespace.
func fileKey(raw string) (string, bool) {
	if raw == "" || strings.HasSuffix(raw, "/") {
		return "", false
	}

	for _, segment := range strings.Split(raw, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", false
		}
	}

	return raw, true
}

func writeBodyError(response http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		httpresponse.WriteErrorStatus(response, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	logger.Log.Debugln("Malformed request body: ", zap.Error(err))
	httpresponse.WriteError(response, apperror.Wrap(apperror.KindInvalidInput, "Invalid input", err))
}

package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

const (
	// MaxAttachmentSize is the largest resume or cover letter accepted.
	MaxAttachmentSize = 5 << 20

	resumesFolder      = "resumes"
	coverLettersFolder = "cover_letters"
)

var allowedAttachmentExtensions = []string{"txt", "pdf", "doc", "docx"}

type preparedFile struct {
	folder string
	key    string
	data   []byte
}

// attachFiles validates and reads every non-empty upload, then stores them
// and records their keys on app. Nothing is uploaded unless all files pass.
func (s *Service) attachFiles(
	ctx context.Context,
	owner *user.User,
	app *jobapplication.JobApplication,
	resume *models.Upload,
	coverLetter *models.Upload,
) error {
	var prepared []preparedFile

	if !resume.IsEmpty() {
		file, err := prepareAttachment(resumesFolder, owner.ID, resume)
		if err != nil {
			return err
		}
		prepared = append(prepared, file)
	}

	if !coverLetter.IsEmpty() {
		file, err := prepareAttachment(coverLettersFolder, owner.ID, coverLetter)
		if err != nil {
			return err
		}
		prepared = append(prepared, file)
	}

	for _, file := range prepared {
		if err := s.objects.Put(ctx, file.key, file.data); err != nil {
			return fmt.Errorf("in internal/service/files.go/attachFiles(): error while `s.objects.Put()` calling: %w", err)
		}
		s.metrics.FileUploaded(file.folder)

		switch file.folder {
		case resumesFolder:
			app.ResumeKey = file.key
		case coverLettersFolder:
			app.CoverLetterKey = file.key
		}
	}

	return nil
}

func prepareAttachment(folder, ownerID string, upload *models.Upload) (preparedFile, error) {
	name, ok := isValidAttachment(upload)
	if !ok {
		return preparedFile{}, apperror.ErrFileNotValid
	}

	data, err := readLimited(upload.Content, MaxAttachmentSize)
	if err != nil {
		return preparedFile{}, err
	}
	if len(data) == 0 {
		return preparedFile{}, apperror.ErrFileNotValid
	}

	return preparedFile{
		folder: folder,
		key:    path.Join(folder, ownerID, name),
		data:   data,
	}, nil
}

// isValidAttachment applies the attachment policy and returns the sanitised
// file name. Which rule failed is deliberately not reported.
func isValidAttachment(upload *models.Upload) (string, bool) {
	if upload.IsEmpty() || upload.Content == nil {
		return "", false
	}

	if upload.Size > MaxAttachmentSize {
		return "", false
	}

	name, ok := baseFileName(upload.Filename)
	if !ok {
		return "", false
	}

	extension := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if !funk.ContainsString(allowedAttachmentExtensions, extension) {
		return "", false
	}

	return name, true
}

// baseFileName strips any directory part a client put in the file name.
func baseFileName(filename string) (string, bool) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "", false
	}

	return name, true
}

// readLimited reads at most limit bytes. Content longer than the declared
// size limit is rejected as an invalid file.
func readLimited(content io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, limit+1))
	if err != nil {
		return nil, fmt.Errorf("in internal/service/files.go/readLimited(): error while `io.ReadAll()` calling: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, apperror.ErrFileNotValid
	}

	return data, nil
}

// UploadFile stores upload under its base file name, outside of any
// application, and returns the key.
func (s *Service) UploadFile(ctx context.Context, upload *models.Upload) (string, error) {
	if upload.IsEmpty() || upload.Content == nil {
		return "", apperror.ErrFileNotValid
	}

	key, ok := baseFileName(upload.Filename)
	if !ok {
		return "", apperror.ErrFileNotValid
	}

	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return "", fmt.Errorf("in internal/service/files.go/UploadFile(): error while `io.ReadAll()` calling: %w", err)
	}

	if err := s.objects.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("in internal/service/files.go/UploadFile(): error while `s.objects.Put()` calling: %w", err)
	}

	return key, nil
}

// DownloadFile returns the object stored under key.
func (s *Service) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	return s.objects.Get(ctx, key)
}

func (s *Service) fileURL(key string) *string {
	if key == "" {
		return nil
	}

	escaped := make([]string, 0, strings.Count(key, "/")+1)
	for _, segment := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}

	result := strings.TrimSuffix(s.fileURLBase, "/") + "/file/" + strings.Join(escaped, "/")
	return &result
}

package jobapplication

import (
	"strings"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
)

// Status is the lifecycle state of a job application.
type Status string

const (
	// StatusSaved marks an application that has been drafted but not sent.
	StatusSaved     Status = "SAVED"
	StatusApplied   Status = "APPLIED"
	StatusOA        Status = "OA"
	StatusInterview Status = "INTERVIEW"
	StatusOffer     Status = "OFFER"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusSaved,
	StatusApplied,
	StatusOA,
	StatusInterview,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return funk.Contains(Statuses, s)
}

// IsApplied reports whether the status means the application was actually sent.
func (s Status) IsApplied() bool {
	return s.IsValid() && s != StatusSaved
}

// ParseStatus converts raw input into a Status. Surrounding whitespace is
// ignored, the comparison is case-sensitive.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.TrimSpace(raw))
	if !status.IsValid() {
		return "", apperror.New(apperror.KindInvalidStatus, "Invalid status: "+raw)
	}

	return status, nil
}

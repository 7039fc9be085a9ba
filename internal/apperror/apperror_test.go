package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	testCases := []struct {
		kind Kind
		want int
	}{
		{KindUserNotFound, http.StatusNotFound},
		{KindUserAlreadyExists, http.StatusConflict},
		{KindApplicationNotFound, http.StatusNotFound},
		{KindForbiddenApplicationAccess, http.StatusForbidden},
		{KindNoApplicationsFound, http.StatusNotFound},
		{KindFileNotValid, http.StatusBadRequest},
		{KindInvalidStatus, http.StatusBadRequest},
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnknown, http.StatusInternalServerError},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.want, testCase.kind.HTTPStatus())
	}
}

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("update: %w", New(KindInvalidStatus, "Invalid status: PENDING"))

	assert.True(t, errors.Is(err, ErrInvalidStatus))
	assert.False(t, errors.Is(err, ErrFileNotValid))
	assert.Equal(t, KindInvalidStatus, KindOf(err))
	assert.Equal(t, "Invalid status: PENDING", MessageOf(err))
}

func TestUnknownErrorHidesDetails(t *testing.T) {
	err := errors.New("dial tcp 10.0.0.1:5432: connection refused")

	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Equal(t, "Internal Server Error", MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("field job_title failed on notblank")
	err := Wrap(KindInvalidInput, "Invalid input", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Invalid input: field job_title failed on notblank", err.Error())
}

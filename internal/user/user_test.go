package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		subject string
		email   string
		display string
		wantErr bool
	}{
		{name: "valid", subject: "auth0|abc", email: "a@x.com", display: "Ann"},
		{name: "trims input", subject: "  auth0|abc ", email: " a@x.com ", display: " Ann "},
		{name: "blank subject", subject: "   ", email: "a@x.com", display: "Ann", wantErr: true},
		{name: "bad email", subject: "auth0|abc", email: "not-an-email", display: "Ann", wantErr: true},
		{name: "blank name", subject: "auth0|abc", email: "a@x.com", display: "  ", wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			usr, err := New(testCase.subject, testCase.email, testCase.display)
			if testCase.wantErr {
				assert.ErrorIs(t, err, apperror.ErrInvalidInput)
				assert.Nil(t, usr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "auth0|abc", usr.Subject)
			assert.Equal(t, "a@x.com", usr.Email)
			assert.Equal(t, "Ann", usr.Name)
		})
	}
}

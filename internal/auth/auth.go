// Package auth provides the middleware that verifies bearer JWTs and
// exposes the caller's identity subject to handlers through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/jobtracker/internal/httpresponse"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
)

// Auth verifies HS256 signed bearer tokens.
type Auth struct {
	// signingKey is the key used to sign and verify JWTs.
	signingKey []byte

	// issuer and audience are checked only when non-empty.
	issuer   string
	audience string
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// SubjectKey is the context key holding the verified identity subject.
const SubjectKey ContextKey = "subject"

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid bearer token")
	ErrMissingSubject = errors.New("token has no subject")
)

type initOptions struct {
	issuer   string
	audience string
}

// InitOption configures the claims Auth requires.
type InitOption func(*initOptions)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) InitOption {
	return func(options *initOptions) {
		options.issuer = issuer
	}
}

// WithAudience requires the aud claim to contain audience.
func WithAudience(audience string) InitOption {
	return func(options *initOptions) {
		options.audience = audience
	}
}

// New creates a new Auth handler with the given JWT signing secret.
func New(signingKey []byte, optionsProto ...InitOption) *Auth {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &Auth{
		signingKey: signingKey,
		issuer:     options.issuer,
		audience:   options.audience,
	}
}

// AuthenticateUser is an HTTP middleware that rejects requests without a
// valid bearer token and stores the token subject in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		subject, err := a.GetSubjectFromToken(bearerToken(request))
		if err != nil {
			logger.Log.Debugln("Error calling the `a.GetSubjectFromToken()`: ", zap.Error(err))
			httpresponse.WriteErrorStatus(response, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(request.Context(), SubjectKey, subject)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// SubjectFromContext returns the subject stored by AuthenticateUser.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok && subject != ""
}

func bearerToken(request *http.Request) string {
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// GetSubjectFromToken verifies tokenString and returns its sub claim.
func (a *Auth) GetSubjectFromToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return a.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return "", fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return "", fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMissingSubject
	}

	return claims.Subject, nil
}

// BuildJWTString signs a token for subject that expires after ttl.
// A zero ttl produces a token without expiry.
func (a *Auth) BuildJWTString(subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Issuer:   a.issuer,
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

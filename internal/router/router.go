// Package router builds the HTTP boundary of the job application service:
// routing, middleware and the handlers translating requests into workflow calls.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/patric-chuzhbe/jobtracker/internal/gzippedhttp"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
	"github.com/patric-chuzhbe/jobtracker/internal/metrics"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
)

const defaultMaxRequestBodySize = 12 << 20

type applicationsWorkflow interface {
	ListApplications(ctx context.Context, subject string) (models.JobApplicationViews, error)

	GetApplication(ctx context.Context, subject string, applicationID string) (*models.JobApplicationView, error)

	CreateApplication(
		ctx context.Context,
		subject string,
		request models.CreateJobApplicationRequest,
	) (*models.JobApplicationView, error)

	UpdateApplication(
		ctx context.Context,
		subject string,
		applicationID string,
		request models.UpdateJobApplicationRequest,
	) (*models.JobApplicationView, error)

	DeleteApplication(ctx context.Context, subject string, applicationID string) error
}

type usersWorkflow interface {
	RegisterUser(
		ctx context.Context,
		subject string,
		request models.RegisterUserRequest,
	) (*models.UserView, error)

	GetInternalStats(ctx context.Context) (*models.InternalStatsResponse, error)
}

type filesGateway interface {
	UploadFile(ctx context.Context, upload *models.Upload) (string, error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type workflow interface {
	applicationsWorkflow
	usersWorkflow
	filesGateway
	pinger
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

type middlewareProvider interface {
	Handler(next http.Handler) http.Handler
}

type trustedSubnetGate interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	svc                workflow
	maxRequestBodySize int64
}

type initOptions struct {
	corsAllowedOrigins []string
	maxRequestBodySize int64
	rateLimiter        middlewareProvider
	trustedSubnet      trustedSubnetGate
}

// InitOption tunes the router built by New.
type InitOption func(*initOptions)

// WithCORSAllowedOrigins lets browsers from origins call the API.
func WithCORSAllowedOrigins(origins []string) InitOption {
	return func(options *initOptions) {
		options.corsAllowedOrigins = origins
	}
}

// WithMaxRequestBodySize bounds every request body.
func WithMaxRequestBodySize(size int64) InitOption {
	return func(options *initOptions) {
		options.maxRequestBodySize = size
	}
}

// WithRateLimiter throttles every route except /ping.
func WithRateLimiter(limiter middlewareProvider) InitOption {
	return func(options *initOptions) {
		options.rateLimiter = limiter
	}
}

// WithTrustedSubnet opens /metrics and /internal/stats to gate's subnet.
// Without it those routes are not mounted.
func WithTrustedSubnet(gate trustedSubnetGate) InitOption {
	return func(options *initOptions) {
		options.trustedSubnet = gate
	}
}

func passThrough(h http.Handler) http.Handler {
	return h
}

// New creates the HTTP handler of the service.
func New(
	svc workflow,
	auth authenticator,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{
		maxRequestBodySize: defaultMaxRequestBodySize,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := Router{
		svc:                svc,
		maxRequestBodySize: options.maxRequestBodySize,
	}

	limit := passThrough
	if options.rateLimiter != nil {
		limit = options.rateLimiter.Handler
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		metrics.InstrumentHandler,
		middleware.Recoverer,
	)
	if len(options.corsAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   options.corsAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Content-Encoding", "Accept-Encoding"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(
		myRouter.limitRequestBody,
		gzippedhttp.UngzipRequest,
	)

	router.Get(`/ping`, myRouter.getPing)

	if options.trustedSubnet != nil {
		router.Group(func(r chi.Router) {
			r.Use(options.trustedSubnet.TrustedSubnetOnly)
			r.Handle(`/metrics`, metrics.Handler())
			r.With(gzippedhttp.GzipResponse).Get(`/internal/stats`, myRouter.getInternalStats)
		})
	}

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateUser, limit)

		r.With(gzippedhttp.GzipResponse).Post(`/user`, myRouter.postUser)

		r.Route(`/applications`, func(r chi.Router) {
			r.Use(gzippedhttp.GzipResponse)
			r.Get(`/`, myRouter.getApplications)
			r.Post(`/`, myRouter.postApplications)
			r.Get(`/{id}`, myRouter.getApplication)
			r.Patch(`/{id}`, myRouter.patchApplication)
			r.Delete(`/{id}`, myRouter.deleteApplication)
		})

		r.Post(`/file`, myRouter.postFile)
		r.Get(`/file/*`, myRouter.getFile)
	})

	return router
}

func (router *Router) limitRequestBody(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if request.Body != nil {
			request.Body = http.MaxBytesReader(response, request.Body, router.maxRequestBodySize)
		}

		h.ServeHTTP(response, request)
	})
}

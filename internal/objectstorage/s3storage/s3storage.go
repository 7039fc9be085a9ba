// Package s3storage keeps objects in an S3 compatible bucket.
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/patric-chuzhbe/jobtracker/internal/objectstorage"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Storage struct {
	client s3API
	bucket string
}

type initOptions struct {
	endpoint        string
	usePathStyle    bool
	accessKeyID     string
	secretAccessKey string
}

// InitOption configures the S3 client built by New.
type InitOption func(*initOptions)

// WithEndpoint points the client at an S3 compatible service such as MinIO.
func WithEndpoint(endpoint string) InitOption {
	return func(options *initOptions) {
		options.endpoint = endpoint
	}
}

// WithPathStyle switches to path style addressing (bucket in the path).
func WithPathStyle(usePathStyle bool) InitOption {
	return func(options *initOptions) {
		options.usePathStyle = usePathStyle
	}
}

// WithStaticCredentials replaces the default AWS credential chain.
// Empty values keep the default chain.
func WithStaticCredentials(accessKeyID, secretAccessKey string) InitOption {
	return func(options *initOptions) {
		options.accessKeyID = accessKeyID
		options.secretAccessKey = secretAccessKey
	}
}

// New loads the AWS configuration for region and builds a client for bucket.
func New(ctx context.Context, bucket, region string, optionsProto ...InitOption) (*S3Storage, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if options.accessKeyID != "" && options.secretAccessKey != "" {
		loadOptions = append(
			loadOptions,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(options.accessKeyID, options.secretAccessKey, ""),
			),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("in internal/objectstorage/s3storage/s3storage.go/New(): error while `awsconfig.LoadDefaultConfig()` calling: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if options.endpoint != "" {
			o.BaseEndpoint = aws.String(options.endpoint)
		}
		o.UsePathStyle = options.usePathStyle
	})

	return newWithClient(client, bucket), nil
}

func newWithClient(client s3API, bucket string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
	}
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", key, err)
	}

	return nil
}

func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, objectstorage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %q: %w", key, err)
	}

	return data, nil
}

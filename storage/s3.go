package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"rafts/config"
	"rafts/errs"
	"rafts/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, endpoint, region, key, secret string) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, r string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               endpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// S3Store legt RAFT.json unter <prefix>/<dataDirectory>/RAFT.json in einem Bucket ab.
// Die Zugriffsrechte regelt der Bucket, das Nutzer-Token wird nur auf Vorhandensein geprüft.
type S3Store struct {
	Client *s3.Client
	Bucket string
	Prefix string
	Logger *zap.Logger
}

func NewS3Store(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*S3Store, error) {
	client, err := NewS3Client(ctx, cfg.S3URL, cfg.S3Region, cfg.S3Key, cfg.S3Secret)
	if err != nil {
		return nil, fmt.Errorf("S3 client creation failed: %w", err)
	}
	return &S3Store{Client: client, Bucket: cfg.S3Bucket, Prefix: cfg.S3Prefix, Logger: logger}, nil
}

// Key liefert den Objektschlüssel für ein Datenverzeichnis.
func (s *S3Store) Key(dataDirectory string) string {
	if s.Prefix == "" {
		return SidecarPath(dataDirectory)
	}
	return path.Join(s.Prefix, SidecarPath(dataDirectory))
}

func (s *S3Store) Download(ctx context.Context, token, dataDirectory string) (*models.Submission, error) {
	const op = "download RAFT.json"
	if token == "" {
		return nil, errs.ErrNotAuthenticated
	}
	key := s.Key(dataDirectory)
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("%s: %w", key, errs.ErrSidecarNotFound)
		}
		return nil, &errs.UpstreamError{Op: op, Err: err}
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &errs.UpstreamError{Op: op, Err: err}
	}
	return decodeSubmission(op, body)
}

func (s *S3Store) Upload(ctx context.Context, token, dataDirectory string, sub *models.Submission) error {
	const op = "upload RAFT.json"
	if token == "" {
		return errs.ErrNotAuthenticated
	}
	payload, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	key := s.Key(dataDirectory)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &errs.UpstreamError{Op: op, Err: err}
	}
	s.Logger.Info("RAFT.json uploaded to S3", zap.String("bucket", s.Bucket), zap.String("key", key))
	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

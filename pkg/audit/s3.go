package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the slice of the S3 API the archiver uses.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the spool archiver target.
type S3Config struct {
	Bucket         string `env:"AUDIT_S3_BUCKET,required"`
	Region         string `env:"AUDIT_S3_REGION,required"`
	AccessKeyID    string `env:"AUDIT_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"AUDIT_S3_SECRET_KEY"`
	Endpoint       string `env:"AUDIT_S3_ENDPOINT"`
	Prefix         string `env:"AUDIT_S3_PREFIX" envDefault:"audit-spool/"`
	ForcePathStyle bool   `env:"AUDIT_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// S3ArchiverOption configures the archiver.
type S3ArchiverOption func(*S3Archiver)

// WithS3Client injects a pre-configured client, bypassing AWS config
// loading. Useful for tests and S3-compatible stores.
func WithS3Client(client S3Client) S3ArchiverOption {
	return func(a *S3Archiver) {
		a.client = client
	}
}

// WithArchiverLogger sets the logger.
func WithArchiverLogger(log *slog.Logger) S3ArchiverOption {
	return func(a *S3Archiver) {
		if log != nil {
			a.log = log
		}
	}
}

// S3Archiver ships rotated spool segments to object storage and deletes
// them locally once uploaded. Retention of the archived objects is
// governed by bucket policy, outside this layer.
type S3Archiver struct {
	client S3Client
	spool  *Spool
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Archiver builds an archiver for the given spool.
func NewS3Archiver(ctx context.Context, cfg S3Config, spool *Spool, opts ...S3ArchiverOption) (*S3Archiver, error) {
	if spool == nil {
		panic("audit: archiver requires a spool")
	}

	a := &S3Archiver{
		spool:  spool,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, fmt.Errorf("%w: s3 archiver needs bucket and region", ErrSpoolFailed)
		}

		awsOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			return nil, errors.Join(ErrStorageUnavailable, err)
		}
		a.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return a, nil
}

// Archive rotates the current spool file and uploads every rotated
// segment, removing each after a successful upload. Returns the number of
// segments shipped.
func (a *S3Archiver) Archive(ctx context.Context) (int, error) {
	if err := a.spool.Rotate(); err != nil {
		return 0, err
	}

	segments, err := a.spool.Segments()
	if err != nil {
		return 0, err
	}

	shipped := 0
	for _, segment := range segments {
		if err := a.upload(ctx, segment); err != nil {
			return shipped, err
		}
		if err := a.spool.Remove(segment); err != nil {
			return shipped, err
		}
		shipped++
	}
	return shipped, nil
}

func (a *S3Archiver) upload(ctx context.Context, segment string) error {
	f, err := a.spool.Open(segment)
	if err != nil {
		return err
	}
	defer f.Close()

	key := strings.TrimSuffix(a.prefix, "/") + "/" + segment
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: s3 %s: %s", ErrStorageUnavailable, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

// Run archives on a fixed cadence until the context is canceled. Failures
// are logged and retried on the next tick; segments stay on disk until
// they ship.
func (a *S3Archiver) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := a.Archive(ctx); err != nil {
				a.log.ErrorContext(ctx, "audit spool archiving failed",
					slog.Int("shipped", n),
					slog.Any("error", err),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

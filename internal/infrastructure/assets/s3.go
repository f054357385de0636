package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by S3Store; *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Presigner signs GET requests; *s3.PresignClient satisfies it.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options 对象存储连接参数
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Client builds an S3 client from static settings. Endpoint enables
// S3-compatible stores such as MinIO or R2.
func NewS3Client(o S3Options) *s3.Client {
	opts := s3.Options{
		Region:       o.Region,
		UsePathStyle: o.UsePathStyle,
	}
	if o.Endpoint != "" {
		opts.BaseEndpoint = aws.String(o.Endpoint)
	}
	if o.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     o.AccessKeyID,
			SecretAccessKey: o.SecretAccessKey,
			Source:          "echobridge-config",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// S3Store keeps assets in a bucket under an optional key prefix. Work files
// are staged in a local directory and uploaded on Commit.
type S3Store struct {
	client     S3Client
	presigner  Presigner
	bucket     string
	prefix     string
	stagingDir string
	presignTTL time.Duration
}

// NewS3 creates an S3-backed Store. presigner may be nil when URLs are not
// needed (for example in the CLI).
func NewS3(client S3Client, presigner Presigner, bucket, prefix, stagingDir string, presignTTL time.Duration) (*S3Store, error) {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, err
	}
	if presignTTL <= 0 {
		presignTTL = 5 * time.Minute
	}
	return &S3Store{
		client:     client,
		presigner:  presigner,
		bucket:     bucket,
		prefix:     prefix,
		stagingDir: stagingDir,
		presignTTL: presignTTL,
	}, nil
}

// key builds the full object key for an asset name.
func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Dir 本地暂存目录
func (s *S3Store) Dir() string {
	return s.stagingDir
}

// Commit uploads the staged file. The object only becomes visible once
// PutObject has succeeded, and the staged file is removed either way.
func (s *S3Store) Commit(ctx context.Context, name, stagedPath string) error {
	defer os.Remove(stagedPath)

	if !ValidName(name) {
		return ErrInvalidName
	}
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("commit %s: %w", name, ErrAssetExists)
	}

	f, err := os.Open(filepath.Clean(stagedPath))
	if err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("audio/mpeg"),
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// Open 读取对象
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

// Exists checks the object with HeadObject.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete 删除对象, DeleteObject 本身幂等
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// URL returns a presigned GET URL valid for the configured TTL.
func (s *S3Store) URL(ctx context.Context, name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	if s.presigner == nil {
		return "", errors.New("assets: s3 presigner not configured")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return req.URL, nil
}

// isS3NotFound reports whether err indicates a missing object.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var (
	_ Store       = (*S3Store)(nil)
	_ URLResolver = (*S3Store)(nil)
)

package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/mailproof/internal/common"
)

const s3KeyPrefix = "keys"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3API is the part of *s3.Client the repository needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config describes an S3-compatible endpoint (AWS or MinIO).
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
}

// NewS3Client builds a path-style S3 client with static credentials.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return client, nil
}

// S3Repository stores each key as an object under keys/<name>. Creation uses
// a conditional PUT (If-None-Match: *), so the bucket itself arbitrates
// concurrent creators.
type S3Repository struct {
	api    S3API
	bucket string
}

func NewS3Repository(api S3API, bucket string) *S3Repository {
	return &S3Repository{api: api, bucket: bucket}
}

func (r *S3Repository) objectKey(name string) string {
	return path.Join(s3KeyPrefix, name)
}

func (r *S3Repository) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := r.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(name)),
	})
	if err != nil {
		if isS3Code(err, "NoSuchKey", "NotFound") {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read: %w", err)
	}
	return data, nil
}

func (r *S3Repository) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(name)),
	})
	if err != nil {
		if isS3Code(err, "NoSuchKey", "NotFound") {
			return false, nil
		}
		return false, fmt.Errorf("s3 head: %w", err)
	}
	return true, nil
}

func (r *S3Repository) CreateIfAbsent(ctx context.Context, name string, data []byte) (bool, error) {
	_, err := r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.objectKey(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/x-pem-file"),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isS3Code(err, "PreconditionFailed", "ConditionalRequestConflict") {
			return false, nil
		}
		return false, fmt.Errorf("s3 put: %w", err)
	}
	return true, nil
}

func isS3Code(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

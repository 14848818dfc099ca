package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"
)

type S3Uploader struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Uploader builds an uploader from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, bucket, region string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket name")
	}
	if region == "" {
		return nil, fmt.Errorf("missing aws region")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %w", err)
	}
	return &S3Uploader{s3.NewFromConfig(cfg), bucket, region}, nil
}

// Upload puts the file at path in the bucket, creating the bucket with
// versioning enabled if it does not exist. It returns the object url.
func (u *S3Uploader) Upload(ctx context.Context, path string) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive for upload: %w", err)
	}
	defer file.Close()

	key := filepath.Base(path)
	uploader := manager.NewUploader(u.client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

func (u *S3Uploader) ensureBucket(ctx context.Context) error {
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	}); err == nil {
		return nil
	}

	if _, err := u.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(u.bucket),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(u.region),
		},
	}); err != nil {
		return fmt.Errorf("unable to create bucket: %w", err)
	}
	log.Infof("created bucket %s", u.bucket)

	if _, err := u.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(u.bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusEnabled,
		},
	}); err != nil {
		log.WithError(err).Warnf("failed to enable versioning on bucket %s", u.bucket)
	}
	return nil
}

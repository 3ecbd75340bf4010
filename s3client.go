package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the S3 per-call limit for DeleteObjects.
const maxDeleteBatch = 1000

// S3Object represents one listed object.
type S3Object struct {
	Key  string
	Size int64
}

// ListPage is one page of a (possibly delimited) listing.
type ListPage struct {
	Objects        []S3Object
	CommonPrefixes []string
	NextToken      string
}

// S3Client wraps the AWS S3 client with our configuration
type S3Client struct {
	client *s3.Client
	config *S3Config
}

// NewS3Client creates a new S3 client from configuration
func NewS3Client(cfg *S3Config) (*S3Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for MinIO and some S3-compatible services
	})

	return &S3Client{
		client: client,
		config: cfg,
	}, nil
}

// ListPage fetches a single page of up to 1000 keys under prefix. An
// empty delimiter lists recursively; an empty returned token means the
// listing is exhausted.
func (c *S3Client) ListPage(ctx context.Context, bucket, prefix, delimiter, token string) (*ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1000),
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	result, err := c.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	page := &ListPage{}
	for _, obj := range result.Contents {
		page.Objects = append(page.Objects, S3Object{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	for _, cp := range result.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, aws.ToString(cp.Prefix))
	}
	if aws.ToBool(result.IsTruncated) {
		page.NextToken = aws.ToString(result.NextContinuationToken)
	}

	return page, nil
}

// DeleteBatch deletes up to 1000 keys in one DeleteObjects call.
func (c *S3Client) DeleteBatch(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > maxDeleteBatch {
		return fmt.Errorf("delete batch of %d keys exceeds the S3 limit of %d", len(keys), maxDeleteBatch)
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	}

	result, err := c.client.DeleteObjects(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	if len(result.Errors) > 0 {
		e := result.Errors[0]
		return fmt.Errorf("failed to delete '%s': %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}

	return nil
}

// HeadBucket checks if a bucket exists and is accessible
func (c *S3Client) HeadBucket(ctx context.Context, bucket string) error {
	input := &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}

	_, err := c.client.HeadBucket(ctx, input)
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchBucket") {
			return fmt.Errorf("bucket '%s' does not exist", bucket)
		}
		return fmt.Errorf("failed to access bucket '%s': %w", bucket, err)
	}

	return nil
}

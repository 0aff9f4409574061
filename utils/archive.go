// utils/archive.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var archiveClient *s3.Client
var archiveBucket string
var cdnBaseURL string

// InitArchive configures the R2 client for settlement report uploads.
// Archival is optional: with no bucket configured the service runs without
// it and ArchiveEnabled reports false.
func InitArchive() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	archiveBucket = os.Getenv("R2_BUCKET_NAME")
	if archiveBucket == "" {
		return nil
	}
	cdnBaseURL = os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load archive storage config: %w", err)
	}

	archiveClient = s3.NewFromConfig(cfg)
	return nil
}

func ArchiveEnabled() bool {
	return archiveClient != nil
}

// UploadJSON marshals v and uploads it under key, returning the public URL.
// key is the object key (e.g., "settlements/house-abc-171234.json").
func UploadJSON(ctx context.Context, key string, v interface{}) (string, error) {
	if archiveClient == nil {
		return "", fmt.Errorf("archive storage is not configured")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = archiveClient.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(archiveBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return fmt.Sprintf("%s/%s", cdnBaseURL, key), nil
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appconfig "talentvoice/interview-analyzer/internal/config"
	"talentvoice/interview-analyzer/internal/logger"
)

const recordingsPrefix = "recordings"

// StoredObject is the durable reference returned by an upload. RetrievalURL
// is time-boxed (24h by default) and must be regenerated once expired, never
// cached beyond that.
type StoredObject struct {
	Key          string
	RetrievalURL string
}

// ObjectStore uploads processed audio to durable storage and hands back a
// time-limited retrieval URL for downstream consumers.
type ObjectStore interface {
	UploadAudio(ctx context.Context, data []byte, filename string) (*StoredObject, error)
	RetrievalURL(ctx context.Context, key string) (string, error)
}

type s3ObjectStore struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	presignExpiry time.Duration
	log           *logrus.Entry
}

func NewS3ObjectStore(ctx context.Context, cfg appconfig.S3Config) (ObjectStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})

	return &s3ObjectStore{
		client:        client,
		uploader:      uploader,
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
		log:           logger.ForModule("objectstore"),
	}, nil
}

func (s *s3ObjectStore) UploadAudio(ctx context.Context, data []byte, filename string) (*StoredObject, error) {
	key := storageKey(filename)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForAudio(filename)),
	})
	if err != nil {
		return nil, &UploadError{Key: key, Err: err}
	}

	url, err := s.RetrievalURL(ctx, key)
	if err != nil {
		return nil, &UploadError{Key: key, Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(data),
	}).Info("audio uploaded")

	return &StoredObject{Key: key, RetrievalURL: url}, nil
}

func (s *s3ObjectStore) RetrievalURL(ctx context.Context, key string) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// storageKey builds a collision-resistant object key independent of the
// original filename, so re-uploads never overwrite prior artifacts.
func storageKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".wav"
	}
	return fmt.Sprintf("%s/%d_%s%s", recordingsPrefix, time.Now().UnixNano(), uuid.New().String(), ext)
}

func contentTypeForAudio(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

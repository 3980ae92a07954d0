package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/story"
)

// S3Store maps each container onto an S3 bucket.
type S3Store struct {
	client  *s3.Client
	buckets map[story.Container]string
	region  string
	urlBase map[story.Container]string
}

// NewS3Store creates a store. buckets must have an entry for every
// container that will be written.
func NewS3Store(client *s3.Client, region string, buckets map[story.Container]string) *S3Store {
	return &S3Store{
		client:  client,
		buckets: buckets,
		region:  region,
		urlBase: make(map[story.Container]string),
	}
}

// WithPublicBase overrides the URL prefix returned for a container, for
// buckets served through a CDN or a custom endpoint.
func (s *S3Store) WithPublicBase(container story.Container, base string) *S3Store {
	s.urlBase[container] = strings.TrimRight(base, "/")
	return s
}

// Bucket returns the bucket backing container.
func (s *S3Store) Bucket(container story.Container) string {
	return s.buckets[container]
}

func (s *S3Store) bucketFor(container string) (string, story.Container, error) {
	c, err := story.ParseContainer(container)
	if err != nil {
		return "", "", err
	}
	bucket := s.buckets[c]
	if bucket == "" {
		return "", "", fmt.Errorf("no bucket configured for container %s", c)
	}
	return bucket, c, nil
}

// URL returns the public URL of key in container.
func (s *S3Store) URL(container story.Container, key string) string {
	if base, ok := s.urlBase[container]; ok {
		return base + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.buckets[container], s.region, key)
}

func (s *S3Store) Put(ctx context.Context, data []byte, contentType, container, key string) (string, error) {
	bucket, c, err := s.bucketFor(container)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   &contentType,
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", bucket, key, err)
	}

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Artifact uploaded to S3")
	return s.URL(c, key), nil
}

func (s *S3Store) Get(ctx context.Context, container, key string) (*Object, error) {
	bucket, _, err := s.bucketFor(container)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return &Object{Data: data, ContentType: aws.ToString(result.ContentType)}, nil
}

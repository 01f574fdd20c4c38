// internal/common/aws/s3.go
package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrStoreDisabled = errors.New("object storage disabled")

type S3Service interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type PresignService interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectStore writes photo archives and report workbooks to one bucket.
type ObjectStore struct {
	api     S3Service
	presign PresignService
	bucket  string
}

func NewObjectStore(api S3Service, presign PresignService, bucket string) *ObjectStore {
	return &ObjectStore{api: api, presign: presign, bucket: bucket}
}

// Enabled reports whether a bucket is configured.
func (o *ObjectStore) Enabled() bool {
	return o != nil && o.api != nil && o.bucket != ""
}

func (o *ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	if !o.Enabled() {
		return ErrStoreDisabled
	}
	_, err := o.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        sdkaws.String(o.bucket),
		Key:           sdkaws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   sdkaws.String(contentType),
		ContentLength: sdkaws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", o.bucket, key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for key.
func (o *ObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !o.Enabled() || o.presign == nil {
		return "", ErrStoreDisabled
	}
	req, err := o.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(o.bucket),
		Key:    sdkaws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", o.bucket, key, err)
	}
	return req.URL, nil
}

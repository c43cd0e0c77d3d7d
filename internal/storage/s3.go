// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage writes content block images to an S3-compatible bucket
// with the AWS SDK v2. Path-style addressing is used so CEPH and Hetzner
// object storage work.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// immutableCache is sent with every object. Keys are never reused, so
// browsers and the CDN may keep them forever.
const immutableCache = "public, max-age=31536000, immutable"

// maxDeleteBatch is the S3 limit on keys per DeleteObjects call.
const maxDeleteBatch = 1000

// Options configures the bucket connection.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string

	// PublicURL is an optional CDN or website origin that serves the
	// bucket. Without it file URLs point at the endpoint.
	PublicURL string
}

// Enabled reports whether enough is set to reach a bucket.
func (o Options) Enabled() bool {
	return o.Endpoint != "" && o.AccessKey != "" && o.SecretKey != ""
}

// Client uploads and removes public objects in one bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string
}

// New builds a client. It returns (nil, nil) when opts are not Enabled,
// so the server can start without object storage.
func New(opts Options) (*Client, error) {
	if !opts.Enabled() {
		return nil, nil
	}
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")
	s3Client := s3.New(s3.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    opts.Bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Upload stores a public-read object under key.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String(immutableCache),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Delete removes objects in batches. Keys the bucket reports as failed
// are returned together in one error; the rest are still removed.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, batch := range batches(keys, maxDeleteBatch) {
		ids := make([]s3types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			ids[i] = s3types.ObjectIdentifier{Key: aws.String(k)}
		}

		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("s3 delete %d objects from %s: %w", len(batch), c.bucket, err))
			continue
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("s3 delete %s/%s: %s", c.bucket, aws.ToString(e.Key), aws.ToString(e.Message)))
		}
	}
	return errors.Join(errs...)
}

// FileURL returns the public URL for a key.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// Bucket returns the name of the bucket objects are written to.
func (c *Client) Bucket() string {
	return c.bucket
}

// ContentKey builds a fresh key for a block image of the given document
// type uploaded at t: content/<type>/YYYY/MM/<uuid><ext>.
func ContentKey(docType string, t time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("content/%s/%04d/%02d/%s%s", docType, t.Year(), int(t.Month()), uuid.NewString(), ext)
}

// ThumbKey returns the key of the thumbnail stored next to key.
func ThumbKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
}

func batches(keys []string, size int) [][]string {
	var out [][]string
	for len(keys) > 0 {
		n := min(size, len(keys))
		out = append(out, keys[:n])
		keys = keys[n:]
	}
	return out
}

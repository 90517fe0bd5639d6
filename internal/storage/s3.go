// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 stores objects in an S3-compatible bucket with public-read ACLs.
// It is configured for path-style access (required by CEPH/Hetzner/MinIO).
type S3 struct {
	client    *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for stored files
}

// NewS3 creates an S3-backed target. Returns an error if endpoint or
// credentials are missing.
func NewS3(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*S3, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, errors.New("s3 storage requires endpoint and credentials")
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &S3{
		client:    client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Exists reports whether an object is present at path.
func (c *S3) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s/%s: %w", c.bucket, path, err)
	}
	return true, nil
}

// MakeDirectory is a no-op: S3 namespaces are flat and prefixes come into
// existence with the first object written under them.
func (c *S3) MakeDirectory(context.Context, string) error {
	return nil
}

// Put writes an object with public-read ACL so stored files can be served
// directly from the bucket or a CDN in front of it.
func (c *S3) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", c.bucket, path, err)
	}
	return nil
}

// Delete removes an object. S3 DeleteObject succeeds for missing keys, so
// deleting an absent object is naturally a no-op.
func (c *S3) Delete(ctx context.Context, path string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, path, err)
	}
	return nil
}

// FileURL returns the public URL for a stored path. Uses the configured
// public URL if set, otherwise builds a path-style bucket URL.
func (c *S3) FileURL(path string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + path
	}
	return c.endpoint + "/" + c.bucket + "/" + path
}

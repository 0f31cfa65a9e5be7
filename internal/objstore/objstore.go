// Copyright (c) 2025 Docenty, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package objstore stores document attachments in S3-compatible object
// storage. Attachments are keyed under their document so deleting a document
// can sweep its files.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotConfigured = errors.New("object storage not configured")
	ErrEmptyKey      = errors.New("empty object key")
)

// presignTTL bounds how long a download link stays valid.
const presignTTL = 15 * time.Minute

// =============================================================================
// CLIENT
// =============================================================================

// Config carries the S3-compatible endpoint settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Attachment describes one stored file.
type Attachment struct {
	Key         string
	Name        string
	Size        int64
	ContentType string
	UploadedAt  time.Time
}

// Client wraps a minio client bound to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists. An empty
// endpoint returns ErrNotConfigured so callers can run without attachments.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "hunmin-attachments"
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// Upload stores an attachment under the given document and returns its key.
func (c *Client) Upload(ctx context.Context, documentID, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := path.Join("documents", documentID, uuid.NewString()+"-"+sanitizeName(filename))
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// Download opens an attachment for reading. The caller closes the reader.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return obj, nil
}

// PresignedURL returns a time-limited download link for an attachment.
func (c *Client) PresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// List returns the attachments stored for a document.
func (c *Client) List(ctx context.Context, documentID string) ([]Attachment, error) {
	prefix := path.Join("documents", documentID) + "/"

	var attachments []Attachment
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		attachments = append(attachments, Attachment{
			Key:        obj.Key,
			Name:       displayName(obj.Key),
			Size:       obj.Size,
			UploadedAt: obj.LastModified,
		})
	}
	return attachments, nil
}

// Delete removes one attachment.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every attachment stored for a document.
func (c *Client) DeleteAll(ctx context.Context, documentID string) error {
	attachments, err := c.List(ctx, documentID)
	if err != nil {
		return err
	}
	for _, a := range attachments {
		if err := c.Delete(ctx, a.Key); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeName strips path separators from user-supplied filenames.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}

// displayName recovers the original filename from an object key by dropping
// the uuid prefix.
func displayName(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '-'); i >= 0 && i == 36 {
		return base[i+1:]
	}
	return base
}

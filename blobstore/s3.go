/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config mirrors the teacher's S3Factory field set.
type S3Config struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
}

// S3Backend lazily builds its client on first use, the same pattern the
// teacher's S3Storage.ensureOpen follows, so a process that never touches
// blob storage never needs valid S3 credentials.
type S3Backend struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
}

func NewS3Backend(cfg S3Config) *S3Backend {
	return &S3Backend{cfg: cfg}
}

func (b *S3Backend) ensureClient(ctx context.Context) (*s3.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(b.cfg.Region),
	}
	if b.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.cfg.AccessKeyID, b.cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	b.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if b.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.cfg.Endpoint)
		}
		o.UsePathStyle = b.cfg.ForcePathStyle
	})
	return b.client, nil
}

func (b *S3Backend) objectKey(storageKey string) string {
	prefix := strings.TrimSuffix(b.cfg.Prefix, "/")
	if prefix == "" {
		return storageKey
	}
	return prefix + "/" + storageKey
}

func (b *S3Backend) WriteChunk(ctx context.Context, blobHash string, index int, data io.Reader) (string, error) {
	client, err := b.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	storageKey := chunkKey(blobHash, index)

	// S3 PutObject needs a seekable/length-known body for non-chunked
	// uploads; buffering keeps chunk writes a single PUT instead of a
	// multipart upload, which is fine at the chunk sizes of at most 8 MiB
	// this protocol uses.
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("blobstore: buffer chunk: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.objectKey(storageKey)),
		Body:   bytes.NewReader(buf),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put object: %w", err)
	}
	return storageKey, nil
}

func (b *S3Backend) ReadChunk(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	client, err := b.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.objectKey(storageKey)),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get object: %w", err)
	}
	return out.Body, nil
}

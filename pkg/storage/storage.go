package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage is an interface for reading and writing archive data
// Supports both local filesystem and S3
type Storage interface {
	// ReadFile reads a whole file
	ReadFile(path string) ([]byte, error)

	// WriteFile writes a whole file, creating parent directories
	WriteFile(path string, data []byte) error

	// Open opens a file for seekable reading
	Open(path string) (io.ReadSeekCloser, error)

	// List lists files matching a prefix
	List(prefix string) ([]string, error)

	// Exists checks if a file exists
	Exists(path string) (bool, error)

	// GetBasePath returns the base path
	GetBasePath() string
}

// LocalStorage implements Storage for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage backend
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

func (s *LocalStorage) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.basePath, path))
}

func (s *LocalStorage) WriteFile(path string, data []byte) error {
	fullPath := filepath.Join(s.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(fullPath, data, 0o644)
}

func (s *LocalStorage) Open(path string) (io.ReadSeekCloser, error) {
	return os.Open(filepath.Join(s.basePath, path))
}

func (s *LocalStorage) List(prefix string) ([]string, error) {
	fullPath := filepath.Join(s.basePath, prefix)
	var files []string

	// A missing prefix lists nothing, as on S3
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil, nil
	}

	err := filepath.Walk(fullPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			relPath, err := filepath.Rel(s.basePath, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(relPath))
		}
		return nil
	})
	sort.Strings(files)

	return files, err
}

func (s *LocalStorage) Exists(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

// S3Storage implements Storage for AWS S3
type S3Storage struct {
	bucket     string
	prefix     string
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
	ctx        context.Context
}

// NewS3Storage creates a new S3 storage backend.
// path should be in format: s3://bucket/prefix. An empty region defers to
// the default AWS configuration chain.
func NewS3Storage(ctx context.Context, path string, region string) (*S3Storage, error) {
	uri, err := ParseS3URI(path)
	if err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	// 10MB parts, 5 concurrent uploads
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 5
	})

	return &S3Storage{
		bucket:     uri.Bucket,
		prefix:     strings.TrimSuffix(uri.Prefix, "/"),
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   uploader,
		ctx:        ctx,
	}, nil
}

func (s *S3Storage) getFullKey(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *S3Storage) ReadFile(path string) ([]byte, error) {
	key := s.getFullKey(path)

	// Download to memory
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.Download(s.ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, key, err)
	}

	return buf.Bytes(), nil
}

// WriteFile uploads data with the multipart uploader
func (s *S3Storage) WriteFile(path string, data []byte) error {
	key := s.getFullKey(path)

	_, err := s.uploader.Upload(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Open returns a seekable reader over the object that fetches ranges on
// demand, so an indexed slice only downloads the blocks it touches.
func (s *S3Storage) Open(path string) (io.ReadSeekCloser, error) {
	key := s.getFullKey(path)

	head, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stat s3://%s/%s: %w", s.bucket, key, err)
	}

	fetch := func(off, n int64) ([]byte, error) {
		out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+n-1)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read s3://%s/%s at %d: %w", s.bucket, key, off, err)
		}
		defer out.Body.Close()

		buf := make([]byte, n)
		if _, err := io.ReadFull(out.Body, buf); err != nil {
			return nil, fmt.Errorf("failed to read s3://%s/%s at %d: %w", s.bucket, key, off, err)
		}
		return buf, nil
	}
	return newRangeReader(fetch, aws.ToInt64(head.ContentLength), rangeBlockSize), nil
}

func (s *S3Storage) List(prefix string) ([]string, error) {
	fullPrefix := s.getFullKey(prefix)

	var files []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			files = append(files, key)
		}
	}

	return files, nil
}

func (s *S3Storage) Exists(path string) (bool, error) {
	key := s.getFullKey(path)

	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (s *S3Storage) GetBasePath() string {
	if s.prefix == "" {
		return fmt.Sprintf("s3://%s", s.bucket)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// NewStorage creates the appropriate storage backend based on path
func NewStorage(ctx context.Context, path string, region string) (Storage, error) {
	if IsS3URI(path) {
		return NewS3Storage(ctx, path, region)
	}
	return NewLocalStorage(path), nil
}

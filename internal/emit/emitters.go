package emit

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DirEmitter writes assets below an output directory
type DirEmitter struct {
	OutDir string
}

// EmitFile writes source to OutDir/fileName
func (e *DirEmitter) EmitFile(ctx context.Context, fileName string, source []byte) error {
	dest, err := outputPath(e.OutDir, fileName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(dest, source, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// outputPath joins fileName onto root, refusing names that escape it
func outputPath(root, fileName string) (string, error) {
	clean := path.Clean("/" + fileName)
	if clean == "/" || strings.Contains(fileName, "\x00") {
		return "", fmt.Errorf("invalid asset name %q", fileName)
	}
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// MemoryEmitter keeps assets in memory
type MemoryEmitter struct {
	mutex sync.Mutex
	files map[string][]byte
}

// NewMemoryEmitter creates an empty in-memory emitter
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{files: make(map[string][]byte)}
}

// EmitFile stores a copy of source
func (e *MemoryEmitter) EmitFile(ctx context.Context, fileName string, source []byte) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, exists := e.files[fileName]; exists {
		return fmt.Errorf("asset %s emitted twice", fileName)
	}
	e.files[fileName] = append([]byte(nil), source...)
	return nil
}

// Files returns the emitted assets by name
func (e *MemoryEmitter) Files() map[string][]byte {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	out := make(map[string][]byte, len(e.files))
	for name, data := range e.files {
		out[name] = data
	}
	return out
}

// BucketConfig locates an S3-compatible bucket
type BucketConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// BucketEmitter uploads assets to an S3-compatible bucket
type BucketEmitter struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewBucketEmitter connects to the bucket described by cfg
func NewBucketEmitter(cfg BucketConfig) (*BucketEmitter, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket endpoint and name are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &BucketEmitter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// EmitFile uploads source as <prefix>/<fileName>
func (e *BucketEmitter) EmitFile(ctx context.Context, fileName string, source []byte) error {
	key := e.objectKey(fileName)

	opts := minio.PutObjectOptions{}
	if ctype := mime.TypeByExtension(path.Ext(fileName)); ctype != "" {
		opts.ContentType = ctype
	}

	_, err := e.client.PutObject(ctx, e.bucket, key, bytes.NewReader(source), int64(len(source)), opts)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (e *BucketEmitter) objectKey(fileName string) string {
	name := strings.TrimPrefix(path.Clean("/"+fileName), "/")
	if e.prefix == "" {
		return name
	}
	return e.prefix + "/" + name
}
